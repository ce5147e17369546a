package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/tlbgroup/mkitchen-backend/config"
	"github.com/tlbgroup/mkitchen-backend/models"
	"github.com/tlbgroup/mkitchen-backend/zohosync"
)

// One-shot sync tool: pulls all bills from Zoho, upserts purchase orders and
// optionally processes them, then exits. Meant for cron / Cloud Scheduler
// jobs; the HTTP server exposes the same flow interactively.
func main() {
	process := flag.Bool("process", false, "Process synced bills into stock after syncing")
	processAll := flag.Bool("process-all", false, "Process every pending synced bill, not just this run's")
	billId := flag.String("bill-id", "", "Process a single bill id and exit (skips the sync)")
	flag.Parse()

	ctx := context.Background()
	config.ConnectDatabaseWithRetry()
	db := config.GetDB()
	if db == nil {
		fmt.Fprintln(os.Stderr, "database not initialized (config.GetDB returned nil)")
		os.Exit(1)
	}

	if !strings.EqualFold(strings.TrimSpace(os.Getenv("SKIP_MIGRATIONS")), "true") {
		models.MigrateTable()
	}

	if strings.TrimSpace(*billId) != "" {
		result, err := zohosync.ProcessBill(ctx, db, strings.TrimSpace(*billId), models.SyncTriggeredManual)
		printJSON(result)
		if err != nil {
			fmt.Fprintf(os.Stderr, "process bill failed: %v\n", err)
			os.Exit(1)
		}
		return
	}

	summary, syncedBillIds, err := zohosync.SyncAllBills(ctx, db, models.SyncTriggeredSystem)
	if err != nil {
		fmt.Fprintf(os.Stderr, "bill sync failed: %v\n", err)
		os.Exit(1)
	}
	printJSON(summary)

	switch {
	case *processAll:
		procSummary, err := zohosync.ProcessAllPending(ctx, db, models.SyncTriggeredSystem)
		if err != nil {
			fmt.Fprintf(os.Stderr, "processing failed: %v\n", err)
			os.Exit(1)
		}
		printJSON(procSummary)
	case *process && len(syncedBillIds) > 0:
		procSummary, err := zohosync.ProcessBills(ctx, db, syncedBillIds, models.SyncTriggeredSystem)
		if err != nil {
			fmt.Fprintf(os.Stderr, "processing failed: %v\n", err)
			os.Exit(1)
		}
		printJSON(procSummary)
	}
}

func printJSON(v interface{}) {
	data, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(data))
}
