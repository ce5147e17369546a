package zohosync

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/tlbgroup/mkitchen-backend/config"
	"github.com/tlbgroup/mkitchen-backend/models"
	"github.com/tlbgroup/mkitchen-backend/utils"
)

// SyncAllBills pulls every bill from Zoho and upserts the derived purchase
// orders. Per-bill failures are recorded and skipped; only a failed fetch
// aborts the run. Returns the summary and the bill ids that synced cleanly.
func SyncAllBills(ctx context.Context, db *gorm.DB, triggeredBy string) (SyncSummary, []string, error) {
	client, err := newZohoClient()
	if err != nil {
		return SyncSummary{}, nil, err
	}
	return syncAllBillsWithClient(ctx, db, client, triggeredBy)
}

func syncAllBillsWithClient(ctx context.Context, db *gorm.DB, client *zohoClient, triggeredBy string) (SyncSummary, []string, error) {
	logger := config.GetLogger()

	run, err := models.StartSyncRun(ctx, db, models.SyncRunKindBillSync, triggeredBy)
	if err != nil {
		return SyncSummary{}, nil, err
	}

	bills, err := client.fetchAllBills(ctx)
	if err != nil {
		config.LogError(ctx, logger, "zohosync", "SyncAllBills", "fetch bills", nil, err)
		_ = models.FinishSyncRun(ctx, db, run, models.SyncRunStatusFailed, 0, 0, 1, nil)
		_ = models.CreateSyncError(ctx, db, run.ID, "bill", "", err.Error(), nil, true)
		return SyncSummary{}, nil, err
	}

	saveBillSnapshot(ctx, bills)

	summary := SyncSummary{}
	var syncedBillIds []string

	for _, bill := range bills {
		billId := strings.TrimSpace(bill.BillId)
		if billId == "" {
			summary.Failed++
			summary.Errors = append(summary.Errors, "bill with empty id skipped")
			_ = models.CreateSyncError(ctx, db, run.ID, "bill", "", "bill id missing", nil, false)
			continue
		}

		input := mapBillToPurchaseOrder(bill)
		_, created, upsertErr := models.UpsertPurchaseOrderFromBill(ctx, db, input)
		if upsertErr != nil {
			summary.Failed++
			summary.Errors = append(summary.Errors, fmt.Sprintf("bill %s: %s", billId, upsertErr.Error()))
			config.LogError(ctx, logger, "zohosync", "SyncAllBills", "upsert purchase order",
				map[string]interface{}{"bill_id": billId, "po_number": input.PONumber}, upsertErr)
			_ = models.CreateSyncError(ctx, db, run.ID, "bill", billId, upsertErr.Error(), nil, true)
			// Best effort: flag the existing PO so operators can see the stale row.
			_ = models.SetSyncStatus(ctx, db, input.PONumber, models.SyncStatusSyncFailed)
			continue
		}

		if created {
			summary.Added++
		} else {
			summary.Updated++
		}
		syncedBillIds = append(syncedBillIds, billId)
	}

	status := models.SyncRunStatusSuccess
	if summary.Failed > 0 && summary.Added+summary.Updated == 0 {
		status = models.SyncRunStatusFailed
	} else if summary.Failed > 0 {
		status = models.SyncRunStatusPartial
	}

	statsJSON, _ := json.Marshal(map[string]int{
		"added":   summary.Added,
		"updated": summary.Updated,
		"failed":  summary.Failed,
	})
	if err := models.FinishSyncRun(ctx, db, run, status, summary.Added+summary.Updated, 0, summary.Failed, statsJSON); err != nil {
		config.LogError(ctx, logger, "zohosync", "SyncAllBills", "finish sync run",
			map[string]interface{}{"run_id": run.ID}, err)
	}

	// Full detail is in the run's sync_errors; the payload stays bounded.
	summary.Errors = utils.SummarizeErrors(summary.Errors, maxSummaryErrors)

	logger.WithFields(map[string]interface{}{
		"run_id":  run.ID,
		"added":   summary.Added,
		"updated": summary.Updated,
		"failed":  summary.Failed,
	}).Info("zoho bill sync finished")

	return summary, syncedBillIds, nil
}
