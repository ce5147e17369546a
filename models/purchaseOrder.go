package models

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Internal purchase-order status vocabulary.
const (
	POStatusDraft     = "Draft"
	POStatusSent      = "Sent"
	POStatusConfirmed = "Confirmed"
	POStatusPartial   = "Partial"
	POStatusCompleted = "Completed"
	POStatusCancelled = "Cancelled"
)

// Sync status: the PO's relationship to its source bill.
const (
	SyncStatusSyncing    = "syncing"
	SyncStatusSynced     = "synced"
	SyncStatusSyncFailed = "sync_failed"
)

// Processing status: whether the bill's line items have been applied to stock.
const (
	ProcessingStatusNotProcessed = "not_processed"
	ProcessingStatusProcessing   = "processing"
	ProcessingStatusProcessed    = "processed"
	ProcessingStatusFailed       = "failed"
)

type PurchaseOrder struct {
	ID                   int                 `gorm:"primary_key" json:"id"`
	PONumber             string              `gorm:"size:100;uniqueIndex;not null" json:"po_number"`
	SupplierId           string              `gorm:"size:100" json:"supplier_id"`
	SupplierName         string              `gorm:"size:255;not null" json:"supplier_name"`
	SupplierContact      string              `gorm:"size:255" json:"supplier_contact"`
	OrderDate            time.Time           `json:"order_date"`
	ExpectedDeliveryDate *time.Time          `json:"expected_delivery_date"`
	Status               string              `gorm:"size:20;not null" json:"status"`
	TotalAmount          decimal.Decimal     `gorm:"type:decimal(20,4);default:0" json:"total_amount"`
	Items                []PurchaseOrderItem `gorm:"foreignKey:PurchaseOrderId" json:"items"`
	Terms                string              `gorm:"type:text" json:"terms"`
	Notes                string              `gorm:"type:text" json:"notes"`

	// Sync metadata.
	ZohoBillId       string     `gorm:"size:100;index" json:"zoho_bill_id"`
	ZohoLocationName string     `gorm:"size:255" json:"zoho_location_name"`
	LastSyncedAt     *time.Time `json:"last_synced_at"`
	SyncStatus       string     `gorm:"size:20" json:"sync_status"`

	// Processing metadata.
	ProcessingStatus string     `gorm:"size:20;index" json:"processing_status"`
	ProcessingError  string     `gorm:"type:text" json:"processing_error"`
	LastProcessedAt  *time.Time `json:"last_processed_at"`
	ProcessedBy      string     `gorm:"size:100" json:"processed_by"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type PurchaseOrderItem struct {
	ID               int             `gorm:"primary_key" json:"id"`
	PurchaseOrderId  int             `gorm:"index;not null" json:"purchase_order_id"`
	MaterialId       string          `gorm:"size:100" json:"material_id"`
	MaterialCode     string          `gorm:"size:100" json:"material_code"`
	MaterialName     string          `gorm:"size:255" json:"material_name"`
	Quantity         decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"quantity"`
	UnitPrice        decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"unit_price"`
	TotalPrice       decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"total_price"`
	ReceivedQuantity decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"received_quantity"`
	Unit             string          `gorm:"size:50" json:"unit"`
	AccountName      string          `gorm:"size:100" json:"account_name"`
	Notes            string          `gorm:"type:text" json:"notes"`
	CreatedAt        time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewPurchaseOrder struct {
	PONumber             string                 `json:"po_number" validate:"required"`
	SupplierId           string                 `json:"supplier_id"`
	SupplierName         string                 `json:"supplier_name" validate:"required"`
	SupplierContact      string                 `json:"supplier_contact"`
	OrderDate            time.Time              `json:"order_date"`
	ExpectedDeliveryDate *time.Time             `json:"expected_delivery_date"`
	Status               string                 `json:"status"`
	TotalAmount          decimal.Decimal        `json:"total_amount"`
	Items                []NewPurchaseOrderItem `json:"items"`
	Terms                string                 `json:"terms"`
	Notes                string                 `json:"notes"`
	ZohoBillId           string                 `json:"zoho_bill_id"`
	ZohoLocationName     string                 `json:"zoho_location_name"`
}

type NewPurchaseOrderItem struct {
	MaterialId   string          `json:"material_id"`
	MaterialCode string          `json:"material_code"`
	MaterialName string          `json:"material_name"`
	Quantity     decimal.Decimal `json:"quantity"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	TotalPrice   decimal.Decimal `json:"total_price"`
	Unit         string          `json:"unit"`
	AccountName  string          `json:"account_name"`
	Notes        string          `json:"notes"`
}

// GetPurchaseOrderByNumber fetches a PO by its derived number.
// Returns (nil, nil) when no record exists.
func GetPurchaseOrderByNumber(ctx context.Context, db *gorm.DB, poNumber string) (*PurchaseOrder, error) {
	var po PurchaseOrder
	err := db.WithContext(ctx).Preload("Items").Where("po_number = ?", poNumber).Take(&po).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &po, nil
}

// GetPurchaseOrderByBillId fetches the PO synced from an external bill.
// Returns (nil, nil) when no record exists.
func GetPurchaseOrderByBillId(ctx context.Context, db *gorm.DB, billId string) (*PurchaseOrder, error) {
	var po PurchaseOrder
	err := db.WithContext(ctx).Preload("Items").Where("zoho_bill_id = ?", billId).Take(&po).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &po, nil
}

// UpsertPurchaseOrderFromBill creates or fully overwrites the PO derived from
// one external bill. The PO number is a deterministic function of the bill,
// which is what makes this idempotent: re-syncing the same bill updates the
// same row. Processing metadata is preserved on update; line items are
// replaced wholesale. Returns created=true on first sync.
func UpsertPurchaseOrderFromBill(ctx context.Context, db *gorm.DB, input *NewPurchaseOrder) (po *PurchaseOrder, created bool, err error) {
	if strings.TrimSpace(input.PONumber) == "" {
		return nil, false, errors.New("po number is required")
	}

	now := time.Now()
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing PurchaseOrder
		findErr := tx.Where("po_number = ?", input.PONumber).Take(&existing).Error
		if findErr != nil && !errors.Is(findErr, gorm.ErrRecordNotFound) {
			return findErr
		}

		if errors.Is(findErr, gorm.ErrRecordNotFound) {
			record := PurchaseOrder{
				PONumber:             input.PONumber,
				SupplierId:           input.SupplierId,
				SupplierName:         input.SupplierName,
				SupplierContact:      input.SupplierContact,
				OrderDate:            input.OrderDate,
				ExpectedDeliveryDate: input.ExpectedDeliveryDate,
				Status:               input.Status,
				TotalAmount:          input.TotalAmount,
				Terms:                input.Terms,
				Notes:                input.Notes,
				ZohoBillId:           input.ZohoBillId,
				ZohoLocationName:     input.ZohoLocationName,
				LastSyncedAt:         &now,
				SyncStatus:           SyncStatusSynced,
				ProcessingStatus:     ProcessingStatusNotProcessed,
				Items:                buildItems(0, input.Items),
			}
			if createErr := tx.Create(&record).Error; createErr != nil {
				return createErr
			}
			po = &record
			created = true
			return nil
		}

		updates := map[string]interface{}{
			"supplier_id":            input.SupplierId,
			"supplier_name":          input.SupplierName,
			"supplier_contact":       input.SupplierContact,
			"order_date":             input.OrderDate,
			"expected_delivery_date": input.ExpectedDeliveryDate,
			"status":                 input.Status,
			"total_amount":           input.TotalAmount,
			"terms":                  input.Terms,
			"notes":                  input.Notes,
			"zoho_bill_id":           input.ZohoBillId,
			"zoho_location_name":     input.ZohoLocationName,
			"last_synced_at":         &now,
			"sync_status":            SyncStatusSynced,
		}
		if updateErr := tx.Model(&PurchaseOrder{}).
			Where("id = ?", existing.ID).
			Updates(updates).Error; updateErr != nil {
			return updateErr
		}

		// Replace line items wholesale: the bill is authoritative.
		if delErr := tx.Where("purchase_order_id = ?", existing.ID).
			Delete(&PurchaseOrderItem{}).Error; delErr != nil {
			return delErr
		}
		items := buildItems(existing.ID, input.Items)
		if len(items) > 0 {
			if itemErr := tx.Create(&items).Error; itemErr != nil {
				return itemErr
			}
		}

		refreshed, refErr := GetPurchaseOrderByNumber(ctx, tx, input.PONumber)
		if refErr != nil {
			return refErr
		}
		po = refreshed
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return po, created, nil
}

func buildItems(poID int, inputs []NewPurchaseOrderItem) []PurchaseOrderItem {
	items := make([]PurchaseOrderItem, 0, len(inputs))
	for _, in := range inputs {
		items = append(items, PurchaseOrderItem{
			PurchaseOrderId: poID,
			MaterialId:      in.MaterialId,
			MaterialCode:    in.MaterialCode,
			MaterialName:    in.MaterialName,
			Quantity:        in.Quantity,
			UnitPrice:       in.UnitPrice,
			TotalPrice:      in.TotalPrice,
			Unit:            in.Unit,
			AccountName:     in.AccountName,
			Notes:           in.Notes,
		})
	}
	return items
}

// ListProcessablePurchaseOrders returns synced POs whose inventory has not
// been applied yet, including previously failed ones (retry is safe).
func ListProcessablePurchaseOrders(ctx context.Context, db *gorm.DB) ([]*PurchaseOrder, error) {
	var pos []*PurchaseOrder
	err := db.WithContext(ctx).
		Where("sync_status = ?", SyncStatusSynced).
		Where("processing_status IN ?", []string{ProcessingStatusNotProcessed, ProcessingStatusFailed}).
		Order("id").
		Find(&pos).Error
	if err != nil {
		return nil, err
	}
	return pos, nil
}

// SetProcessingStatus transitions the PO's processing state machine.
// processedBy and errMsg are only written where they carry meaning.
func SetProcessingStatus(ctx context.Context, db *gorm.DB, poID int, status string, processedBy string, errMsg string) error {
	updates := map[string]interface{}{
		"processing_status": status,
		"processing_error":  errMsg,
	}
	if status == ProcessingStatusProcessed || status == ProcessingStatusFailed {
		now := time.Now()
		updates["last_processed_at"] = &now
		updates["processed_by"] = processedBy
	}
	return db.WithContext(ctx).
		Model(&PurchaseOrder{}).
		Where("id = ?", poID).
		Updates(updates).Error
}

// SetSyncStatus is a best-effort marker used when a bill fails mid-sync.
func SetSyncStatus(ctx context.Context, db *gorm.DB, poNumber string, status string) error {
	return db.WithContext(ctx).
		Model(&PurchaseOrder{}).
		Where("po_number = ?", poNumber).
		Update("sync_status", status).Error
}
