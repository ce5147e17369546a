package zohosync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bsm/redislock"
	"gorm.io/gorm"

	"github.com/tlbgroup/mkitchen-backend/config"
	"github.com/tlbgroup/mkitchen-backend/models"
	"github.com/tlbgroup/mkitchen-backend/utils"
)

const (
	processLockPrefix = "lock:zoho-bill:"
	processLockTTL    = 2 * time.Minute
)

var errBillBusy = errors.New("bill is being processed by another worker")

// ProcessBill applies one synced bill's line items to the outlet's stock
// tables. The bill must have been synced first; processing refetches the bill
// from Zoho so line items are always current.
func ProcessBill(ctx context.Context, db *gorm.DB, billId string, processedBy string) (ProcessResult, error) {
	client, err := newZohoClient()
	if err != nil {
		return ProcessResult{BillId: billId, Status: "failed", Message: err.Error()}, err
	}
	return processBillWithClient(ctx, db, client, billId, processedBy)
}

func processBillWithClient(ctx context.Context, db *gorm.DB, client *zohoClient, billId string, processedBy string) (ProcessResult, error) {
	logger := config.GetLogger()

	// Advisory lock so two workers never double-apply the same bill. When
	// Redis is not configured the single-process path is already serialized
	// by the caller.
	if locker := config.GetRedisLock(); locker != nil {
		lock, lockErr := locker.Obtain(ctx, processLockPrefix+billId, processLockTTL, nil)
		if lockErr != nil {
			if errors.Is(lockErr, redislock.ErrNotObtained) {
				return ProcessResult{BillId: billId, Status: "busy", Message: errBillBusy.Error()}, errBillBusy
			}
			config.LogError(ctx, logger, "zohosync", "ProcessBill", "obtain lock",
				map[string]interface{}{"bill_id": billId}, lockErr)
		} else {
			defer func() { _ = lock.Release(context.WithoutCancel(ctx)) }()
		}
	}

	po, err := models.GetPurchaseOrderByBillId(ctx, db, billId)
	if err != nil {
		return ProcessResult{BillId: billId, Status: "failed", Message: err.Error()}, err
	}
	if po == nil {
		err := fmt.Errorf("bill %s has not been synced", billId)
		return ProcessResult{BillId: billId, Status: "failed", Message: err.Error()}, err
	}
	if po.ProcessingStatus == models.ProcessingStatusProcessed {
		return ProcessResult{BillId: billId, PONumber: po.PONumber, Status: "already_processed"}, nil
	}

	bill, err := client.fetchBillById(ctx, billId)
	if err != nil {
		config.LogError(ctx, logger, "zohosync", "ProcessBill", "fetch bill",
			map[string]interface{}{"bill_id": billId}, err)
		return ProcessResult{BillId: billId, PONumber: po.PONumber, Status: "failed", Message: err.Error()}, err
	}

	// Resolve the outlet before any state transition: an unroutable location
	// is an operator problem, not a processing failure, and must leave the
	// state machine untouched.
	module, ok := models.DefaultLocationTable().Resolve(bill.Location())
	if !ok {
		err := fmt.Errorf("bill %s location %q does not match any outlet", billId, bill.Location())
		return ProcessResult{BillId: billId, PONumber: po.PONumber, Status: "unroutable", Message: err.Error()}, err
	}

	if err := models.SetProcessingStatus(ctx, db, po.ID, models.ProcessingStatusProcessing, processedBy, ""); err != nil {
		return ProcessResult{BillId: billId, PONumber: po.PONumber, Status: "failed", Message: err.Error()}, err
	}

	policy := models.DefaultStockPolicy()
	applied := 0
	skipped := 0
	var itemErrors []string

	for _, item := range bill.LineItems {
		target, skip, targetErr := models.StockTargetFor(module, item.AccountName)
		if targetErr != nil {
			itemErrors = append(itemErrors, fmt.Sprintf("item %s: %s", item.Name, targetErr.Error()))
			continue
		}
		if skip {
			skipped++
			continue
		}

		qty, qtyErr := item.Quantity.Decimal()
		if qtyErr != nil {
			itemErrors = append(itemErrors, fmt.Sprintf("item %s: quantity %q is not numeric", item.Name, item.Quantity.String()))
			continue
		}

		receipt := models.StockReceipt{
			Code:       materialCode(item),
			Name:       item.Name,
			Category:   item.AccountName,
			Unit:       item.Unit,
			Quantity:   qty,
			Rate:       decimalFromNumber(item.Rate),
			BillNumber: bill.BillNumber,
			Date:       parseBillDate(bill.Date),
		}
		if _, applyErr := models.ApplyStockReceipt(ctx, db, target, receipt, policy); applyErr != nil {
			itemErrors = append(itemErrors, fmt.Sprintf("item %s: %s", item.Name, applyErr.Error()))
			config.LogError(ctx, logger, "zohosync", "ProcessBill", "apply stock receipt",
				map[string]interface{}{"bill_id": billId, "material_code": receipt.Code, "table": target.Table}, applyErr)
			continue
		}
		applied++
	}

	if len(itemErrors) > 0 {
		message := strings.Join(utils.SummarizeErrors(itemErrors, maxSummaryErrors), "; ")
		if err := models.SetProcessingStatus(ctx, db, po.ID, models.ProcessingStatusFailed, processedBy, message); err != nil {
			return ProcessResult{BillId: billId, PONumber: po.PONumber, Status: "failed", Message: err.Error()}, err
		}
		err := fmt.Errorf("bill %s: %d of %d items failed: %s", billId, len(itemErrors), len(bill.LineItems), message)
		return ProcessResult{BillId: billId, PONumber: po.PONumber, Status: "failed", Message: err.Error()}, err
	}

	if err := models.SetProcessingStatus(ctx, db, po.ID, models.ProcessingStatusProcessed, processedBy, ""); err != nil {
		return ProcessResult{BillId: billId, PONumber: po.PONumber, Status: "failed", Message: err.Error()}, err
	}

	logger.WithFields(map[string]interface{}{
		"bill_id":   billId,
		"po_number": po.PONumber,
		"module":    string(module),
		"applied":   applied,
		"skipped":   skipped,
	}).Info("zoho bill processed")

	return ProcessResult{BillId: billId, PONumber: po.PONumber, Status: "processed"}, nil
}

// ProcessBills runs the given bills strictly in order under one tracked run.
// A failing bill is recorded and the batch moves on.
func ProcessBills(ctx context.Context, db *gorm.DB, billIds []string, triggeredBy string) (ProcessSummary, error) {
	client, err := newZohoClient()
	if err != nil {
		return ProcessSummary{}, err
	}
	return processBillsWithClient(ctx, db, client, billIds, triggeredBy)
}

func processBillsWithClient(ctx context.Context, db *gorm.DB, client *zohoClient, billIds []string, triggeredBy string) (ProcessSummary, error) {
	logger := config.GetLogger()

	run, err := models.StartSyncRun(ctx, db, models.SyncRunKindBillProcessing, triggeredBy)
	if err != nil {
		return ProcessSummary{}, err
	}

	summary := ProcessSummary{}
	for _, billId := range billIds {
		billId = strings.TrimSpace(billId)
		if billId == "" {
			continue
		}
		result, procErr := processBillWithClient(ctx, db, client, billId, triggeredBy)
		summary.Results = append(summary.Results, result)
		switch result.Status {
		case "processed":
			summary.Processed++
		case "already_processed":
			summary.Skipped++
		default:
			summary.Failed++
			if procErr != nil {
				summary.Errors = append(summary.Errors, procErr.Error())
				_ = models.CreateSyncError(ctx, db, run.ID, "bill", billId, procErr.Error(), nil, result.Status != "unroutable")
			}
		}
	}

	status := models.SyncRunStatusSuccess
	if summary.Failed > 0 && summary.Processed == 0 {
		status = models.SyncRunStatusFailed
	} else if summary.Failed > 0 {
		status = models.SyncRunStatusPartial
	}

	statsJSON, _ := json.Marshal(map[string]int{
		"processed": summary.Processed,
		"skipped":   summary.Skipped,
		"failed":    summary.Failed,
	})
	if err := models.FinishSyncRun(ctx, db, run, status, summary.Processed, summary.Skipped, summary.Failed, statsJSON); err != nil {
		config.LogError(ctx, logger, "zohosync", "ProcessBills", "finish run",
			map[string]interface{}{"run_id": run.ID}, err)
	}

	// Full detail is in the run's sync_errors; the payload stays bounded.
	summary.Errors = utils.SummarizeErrors(summary.Errors, maxSummaryErrors)

	return summary, nil
}

// ProcessAllPending processes every synced PO still waiting on inventory,
// including earlier failures.
func ProcessAllPending(ctx context.Context, db *gorm.DB, triggeredBy string) (ProcessSummary, error) {
	pos, err := models.ListProcessablePurchaseOrders(ctx, db)
	if err != nil {
		return ProcessSummary{}, err
	}
	billIds := make([]string, 0, len(pos))
	for _, po := range pos {
		if po.ZohoBillId != "" {
			billIds = append(billIds, po.ZohoBillId)
		}
	}
	if len(billIds) == 0 {
		return ProcessSummary{}, nil
	}
	return ProcessBills(ctx, db, billIds, triggeredBy)
}
