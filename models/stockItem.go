package models

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tlbgroup/mkitchen-backend/utils"
	"gorm.io/gorm"
)

const (
	StockItemStatusInStock    = "In Stock"
	StockItemStatusLowStock   = "Low Stock"
	StockItemStatusOutOfStock = "Out of Stock"
)

// Account classifications that route a central-kitchen line item to stock.
// Any other account name on a central-kitchen bill is skipped by design:
// only these two represent receivable inventory.
const (
	AccountNameInventoryRaw   = "Inventory Raw"
	AccountNameInventoryAsset = "Inventory Asset"
)

// RawMaterialStock is the stock record shape for raw-material collections:
// the four outlet tables plus the central kitchen's raw-material table.
// Keyed by material_code, unique within its table.
type RawMaterialStock struct {
	ID           int             `gorm:"primary_key" json:"id"`
	MaterialCode string          `gorm:"size:100;uniqueIndex;not null" json:"material_code"`
	MaterialName string          `gorm:"size:255;not null" json:"material_name"`
	Category     string          `gorm:"size:100" json:"category"`
	Unit         string          `gorm:"size:50" json:"unit"`
	UnitPrice    decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"unit_price"`
	CurrentStock decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"current_stock"`
	MinLevel     decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"min_level"`
	MaxLevel     decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"max_level"`
	ReorderLevel decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"reorder_level"`
	IsActive     *bool           `gorm:"not null;default:true" json:"is_active"`
	Status       string          `gorm:"size:20" json:"status"`
	Notes        string          `gorm:"type:text" json:"notes"`
	CreatedAt    time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

// FinishedGoodStock is the stock record shape for the central kitchen's
// finished-good collection. Keyed by product_code.
type FinishedGoodStock struct {
	ID           int             `gorm:"primary_key" json:"id"`
	ProductCode  string          `gorm:"size:100;uniqueIndex;not null" json:"product_code"`
	ProductName  string          `gorm:"size:255;not null" json:"product_name"`
	Category     string          `gorm:"size:100" json:"category"`
	Unit         string          `gorm:"size:50" json:"unit"`
	UnitPrice    decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"unit_price"`
	CurrentStock decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"current_stock"`
	MinLevel     decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"min_level"`
	MaxLevel     decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"max_level"`
	ReorderLevel decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"reorder_level"`
	IsActive     *bool           `gorm:"not null;default:true" json:"is_active"`
	Status       string          `gorm:"size:20" json:"status"`
	Notes        string          `gorm:"type:text" json:"notes"`
	CreatedAt    time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type StockKind string

const (
	StockKindRawMaterial  StockKind = "raw_material"
	StockKindFinishedGood StockKind = "finished_good"
)

// StockTarget names the physical collection a receipt lands in.
type StockTarget struct {
	Module ModuleId
	Table  string
	Kind   StockKind
}

// StockTargetFor resolves the destination collection for one bill line.
// Routing is a closed mapping over the module enum; the account name only
// matters for the central kitchen, which splits raw materials from finished
// goods into physically distinct tables. skip=true means the line is not
// receivable inventory (counted separately by the pipeline, never an error).
func StockTargetFor(module ModuleId, accountName string) (target StockTarget, skip bool, err error) {
	switch module {
	case ModuleCentralKitchen:
		switch {
		case strings.EqualFold(strings.TrimSpace(accountName), AccountNameInventoryRaw):
			return StockTarget{Module: module, Table: "central_kitchen_raw_materials", Kind: StockKindRawMaterial}, false, nil
		case strings.EqualFold(strings.TrimSpace(accountName), AccountNameInventoryAsset):
			return StockTarget{Module: module, Table: "central_kitchen_products", Kind: StockKindFinishedGood}, false, nil
		default:
			return StockTarget{}, true, nil
		}
	case ModuleKuwaitCity:
		return StockTarget{Module: module, Table: "kuwait_city_stocks", Kind: StockKindRawMaterial}, false, nil
	case ModuleVibeComplex:
		return StockTarget{Module: module, Table: "vibe_complex_stocks", Kind: StockKindRawMaterial}, false, nil
	case ModuleMall360:
		return StockTarget{Module: module, Table: "mall360_stocks", Kind: StockKindRawMaterial}, false, nil
	case ModuleTaibaKitchen:
		return StockTarget{Module: module, Table: "taiba_kitchen_stocks", Kind: StockKindRawMaterial}, false, nil
	default:
		return StockTarget{}, false, fmt.Errorf("unknown module %q", module)
	}
}

// StockTables lists every stock collection, for migration and reporting.
func StockTables() []StockTarget {
	tables := make([]StockTarget, 0, 6)
	for _, m := range AllModules() {
		if m == ModuleCentralKitchen {
			raw, _, _ := StockTargetFor(m, AccountNameInventoryRaw)
			fin, _, _ := StockTargetFor(m, AccountNameInventoryAsset)
			tables = append(tables, raw, fin)
			continue
		}
		t, _, _ := StockTargetFor(m, "")
		tables = append(tables, t)
	}
	return tables
}

// StockPolicy carries the thresholds seeded onto newly created stock items.
type StockPolicy struct {
	MinLevel     decimal.Decimal
	MaxLevel     decimal.Decimal
	ReorderLevel decimal.Decimal
}

func DefaultStockPolicy() StockPolicy {
	return StockPolicy{
		MinLevel:     decimal.Zero,
		MaxLevel:     decimal.NewFromInt(1000),
		ReorderLevel: decimal.NewFromInt(10),
	}
}

// StockReceipt is one bill line applied to a stock collection.
type StockReceipt struct {
	Code       string
	Name       string
	Category   string
	Unit       string
	Quantity   decimal.Decimal
	Rate       decimal.Decimal
	BillNumber string
	Date       time.Time
}

// ApplyStockReceipt adds a receipt to the target collection.
// Existing item: quantity is added and the unit price is overwritten with the
// latest bill rate. Missing item: created with the policy thresholds.
// Returns created=true when a new record was inserted.
func ApplyStockReceipt(ctx context.Context, db *gorm.DB, target StockTarget, receipt StockReceipt, policy StockPolicy) (created bool, err error) {
	code := strings.TrimSpace(receipt.Code)
	if code == "" {
		return false, errors.New("stock receipt has no item code")
	}
	if receipt.Quantity.IsNegative() {
		return false, fmt.Errorf("stock receipt for %q has negative quantity %s", code, receipt.Quantity.String())
	}

	switch target.Kind {
	case StockKindRawMaterial:
		return applyRawMaterialReceipt(ctx, db, target.Table, code, receipt, policy)
	case StockKindFinishedGood:
		return applyFinishedGoodReceipt(ctx, db, target.Table, code, receipt, policy)
	default:
		return false, fmt.Errorf("unknown stock kind %q", target.Kind)
	}
}

func applyRawMaterialReceipt(ctx context.Context, db *gorm.DB, table string, code string, receipt StockReceipt, policy StockPolicy) (bool, error) {
	var existing RawMaterialStock
	err := db.WithContext(ctx).Table(table).Where("material_code = ?", code).Take(&existing).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return false, err
	}

	if errors.Is(err, gorm.ErrRecordNotFound) {
		item := RawMaterialStock{
			MaterialCode: code,
			MaterialName: receiptName(receipt, code),
			Category:     receipt.Category,
			Unit:         receipt.Unit,
			UnitPrice:    receipt.Rate,
			CurrentStock: receipt.Quantity,
			MinLevel:     policy.MinLevel,
			MaxLevel:     policy.MaxLevel,
			ReorderLevel: policy.ReorderLevel,
			IsActive:     utils.NewTrue(),
			Status:       StockItemStatusInStock,
			Notes:        createdNote(receipt),
		}
		if err := db.WithContext(ctx).Table(table).Create(&item).Error; err != nil {
			return false, err
		}
		return true, nil
	}

	updates := map[string]interface{}{
		"current_stock": existing.CurrentStock.Add(receipt.Quantity),
		"unit_price":    receipt.Rate,
		"notes":         appendNote(existing.Notes, receivedNote(receipt)),
	}
	if err := db.WithContext(ctx).Table(table).
		Where("material_code = ?", code).
		Updates(updates).Error; err != nil {
		return false, err
	}
	return false, nil
}

func applyFinishedGoodReceipt(ctx context.Context, db *gorm.DB, table string, code string, receipt StockReceipt, policy StockPolicy) (bool, error) {
	var existing FinishedGoodStock
	err := db.WithContext(ctx).Table(table).Where("product_code = ?", code).Take(&existing).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return false, err
	}

	if errors.Is(err, gorm.ErrRecordNotFound) {
		item := FinishedGoodStock{
			ProductCode:  code,
			ProductName:  receiptName(receipt, code),
			Category:     receipt.Category,
			Unit:         receipt.Unit,
			UnitPrice:    receipt.Rate,
			CurrentStock: receipt.Quantity,
			MinLevel:     policy.MinLevel,
			MaxLevel:     policy.MaxLevel,
			ReorderLevel: policy.ReorderLevel,
			IsActive:     utils.NewTrue(),
			Status:       StockItemStatusInStock,
			Notes:        createdNote(receipt),
		}
		if err := db.WithContext(ctx).Table(table).Create(&item).Error; err != nil {
			return false, err
		}
		return true, nil
	}

	updates := map[string]interface{}{
		"current_stock": existing.CurrentStock.Add(receipt.Quantity),
		"unit_price":    receipt.Rate,
		"notes":         appendNote(existing.Notes, receivedNote(receipt)),
	}
	if err := db.WithContext(ctx).Table(table).
		Where("product_code = ?", code).
		Updates(updates).Error; err != nil {
		return false, err
	}
	return false, nil
}

// ListRawMaterialStocks reads every record of one raw-material table, for reports.
func ListRawMaterialStocks(ctx context.Context, db *gorm.DB, table string) ([]*RawMaterialStock, error) {
	var items []*RawMaterialStock
	if err := db.WithContext(ctx).Table(table).Order("material_code").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func ListFinishedGoodStocks(ctx context.Context, db *gorm.DB, table string) ([]*FinishedGoodStock, error) {
	var items []*FinishedGoodStock
	if err := db.WithContext(ctx).Table(table).Order("product_code").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func receiptName(receipt StockReceipt, code string) string {
	name := strings.TrimSpace(receipt.Name)
	if name == "" {
		return code
	}
	return name
}

func createdNote(receipt StockReceipt) string {
	return fmt.Sprintf("Created from bill %s", receipt.BillNumber)
}

func receivedNote(receipt StockReceipt) string {
	return fmt.Sprintf("Received %s units from bill %s on %s",
		receipt.Quantity.String(), receipt.BillNumber, receipt.Date.Format("2006-01-02"))
}

func appendNote(notes string, note string) string {
	if strings.TrimSpace(notes) == "" {
		return note
	}
	return notes + "; " + note
}
