package zohosync

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tlbgroup/mkitchen-backend/models"
)

func TestSyncAllBillsFirstRunAdds(t *testing.T) {
	fake := &fakeZoho{bills: []ZohoBill{
		centralKitchenBill("B1", "100"),
		centralKitchenBill("B2", "101"),
	}}
	client := newTestClient(t, fake)
	db := newTestDB(t)
	ctx := context.Background()

	summary, billIds, err := syncAllBillsWithClient(ctx, db, client, models.SyncTriggeredManual)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Added)
	assert.Equal(t, 0, summary.Updated)
	assert.Equal(t, 0, summary.Failed)
	assert.Equal(t, []string{"B1", "B2"}, billIds)

	po, err := models.GetPurchaseOrderByNumber(ctx, db, "PO-ZOHO-100")
	require.NoError(t, err)
	require.NotNil(t, po)
	assert.Equal(t, models.SyncStatusSynced, po.SyncStatus)
	assert.Equal(t, models.ProcessingStatusNotProcessed, po.ProcessingStatus)
	assert.Len(t, po.Items, 3)

	runs, err := models.ListSyncRuns(ctx, db, models.SyncRunKindBillSync, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, models.SyncRunStatusSuccess, runs[0].Status)
	assert.Equal(t, 2, runs[0].RecordsSynced)
}

func TestSyncAllBillsIsIdempotent(t *testing.T) {
	fake := &fakeZoho{bills: []ZohoBill{centralKitchenBill("B1", "100")}}
	client := newTestClient(t, fake)
	db := newTestDB(t)
	ctx := context.Background()

	_, _, err := syncAllBillsWithClient(ctx, db, client, models.SyncTriggeredManual)
	require.NoError(t, err)

	summary, _, err := syncAllBillsWithClient(ctx, db, client, models.SyncTriggeredManual)
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Added)
	assert.Equal(t, 1, summary.Updated)

	var count int64
	require.NoError(t, db.Model(&models.PurchaseOrder{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestSyncAllBillsIsolatesBadBills(t *testing.T) {
	bad := centralKitchenBill("", "")
	fake := &fakeZoho{bills: []ZohoBill{
		centralKitchenBill("B1", "100"),
		bad,
		centralKitchenBill("B3", "102"),
	}}
	client := newTestClient(t, fake)
	db := newTestDB(t)
	ctx := context.Background()

	summary, billIds, err := syncAllBillsWithClient(ctx, db, client, models.SyncTriggeredManual)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Added)
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, []string{"B1", "B3"}, billIds)

	runs, err := models.ListSyncRuns(ctx, db, models.SyncRunKindBillSync, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, models.SyncRunStatusPartial, runs[0].Status)
	assert.Equal(t, 1, runs[0].ErrorCount)

	_, syncErrors, err := models.GetSyncRun(ctx, db, runs[0].ID)
	require.NoError(t, err)
	require.Len(t, syncErrors, 1)
	assert.Equal(t, "bill id missing", syncErrors[0].Message)
}

func TestSyncAllBillsBoundsErrorList(t *testing.T) {
	fake := &fakeZoho{}
	for i := 0; i < 8; i++ {
		fake.bills = append(fake.bills, centralKitchenBill("", ""))
	}
	client := newTestClient(t, fake)
	db := newTestDB(t)
	ctx := context.Background()

	summary, _, err := syncAllBillsWithClient(ctx, db, client, models.SyncTriggeredManual)
	require.NoError(t, err)
	assert.Equal(t, 8, summary.Failed)

	// The payload only carries the first few errors plus a tail.
	require.Len(t, summary.Errors, 6)
	assert.Equal(t, "...and 3 more", summary.Errors[5])

	// Every failure is still on record in the run.
	runs, err := models.ListSyncRuns(ctx, db, models.SyncRunKindBillSync, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	_, syncErrors, err := models.GetSyncRun(ctx, db, runs[0].ID)
	require.NoError(t, err)
	assert.Len(t, syncErrors, 8)
}

func TestSyncWritesSnapshot(t *testing.T) {
	fake := &fakeZoho{bills: []ZohoBill{centralKitchenBill("B1", "100")}}
	client := newTestClient(t, fake)
	db := newTestDB(t)

	dir := os.Getenv("SNAPSHOT_DIR")
	_, _, err := syncAllBillsWithClient(context.Background(), db, client, models.SyncTriggeredManual)
	require.NoError(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	data, err := os.ReadFile(filepath.Join(dir, entries[0].Name()))
	require.NoError(t, err)
	var bills []ZohoBill
	require.NoError(t, json.Unmarshal(data, &bills))
	require.Len(t, bills, 1)
	assert.Equal(t, "B1", bills[0].BillId)
}
