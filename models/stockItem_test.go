package models

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStockTargetForCentralKitchen(t *testing.T) {
	target, skip, err := StockTargetFor(ModuleCentralKitchen, "Inventory Raw")
	require.NoError(t, err)
	assert.False(t, skip)
	assert.Equal(t, "central_kitchen_raw_materials", target.Table)
	assert.Equal(t, StockKindRawMaterial, target.Kind)

	target, skip, err = StockTargetFor(ModuleCentralKitchen, "Inventory Asset")
	require.NoError(t, err)
	assert.False(t, skip)
	assert.Equal(t, "central_kitchen_products", target.Table)
	assert.Equal(t, StockKindFinishedGood, target.Kind)

	// Account matching absorbs casing and padding from vendor bills.
	target, skip, err = StockTargetFor(ModuleCentralKitchen, "  inventory raw ")
	require.NoError(t, err)
	assert.False(t, skip)
	assert.Equal(t, "central_kitchen_raw_materials", target.Table)

	// Anything else on a central-kitchen bill is not receivable inventory.
	_, skip, err = StockTargetFor(ModuleCentralKitchen, "Office Supplies")
	require.NoError(t, err)
	assert.True(t, skip)
}

func TestStockTargetForOutlets(t *testing.T) {
	cases := map[ModuleId]string{
		ModuleKuwaitCity:   "kuwait_city_stocks",
		ModuleVibeComplex:  "vibe_complex_stocks",
		ModuleMall360:      "mall360_stocks",
		ModuleTaibaKitchen: "taiba_kitchen_stocks",
	}
	for module, table := range cases {
		// Outlets receive everything as raw material; the account name only
		// matters for the central kitchen.
		target, skip, err := StockTargetFor(module, "Anything At All")
		require.NoError(t, err)
		assert.False(t, skip)
		assert.Equal(t, table, target.Table)
		assert.Equal(t, StockKindRawMaterial, target.Kind)
	}
}

func TestStockTargetForUnknownModule(t *testing.T) {
	_, _, err := StockTargetFor(ModuleId("food-truck"), "Inventory Raw")
	assert.Error(t, err)
}

func TestApplyStockReceiptCreates(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	target, _, err := StockTargetFor(ModuleKuwaitCity, "")
	require.NoError(t, err)

	receipt := StockReceipt{
		Code:       "FLOUR-01",
		Name:       "Flour",
		Category:   "Inventory Raw",
		Unit:       "kg",
		Quantity:   decimal.NewFromInt(25),
		Rate:       decimal.RequireFromString("1.25"),
		BillNumber: "B-100",
		Date:       time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
	}
	created, err := ApplyStockReceipt(ctx, db, target, receipt, DefaultStockPolicy())
	require.NoError(t, err)
	assert.True(t, created)

	stocks, err := ListRawMaterialStocks(ctx, db, target.Table)
	require.NoError(t, err)
	require.Len(t, stocks, 1)
	assert.Equal(t, "FLOUR-01", stocks[0].MaterialCode)
	assert.Equal(t, "Flour", stocks[0].MaterialName)
	assert.True(t, stocks[0].CurrentStock.Equal(decimal.NewFromInt(25)))
	assert.True(t, stocks[0].MinLevel.Equal(decimal.Zero))
	assert.True(t, stocks[0].MaxLevel.Equal(decimal.NewFromInt(1000)))
	assert.True(t, stocks[0].ReorderLevel.Equal(decimal.NewFromInt(10)))
	assert.Equal(t, StockItemStatusInStock, stocks[0].Status)
	assert.Contains(t, stocks[0].Notes, "Created from bill B-100")
}

func TestApplyStockReceiptAddsToExisting(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	target, _, err := StockTargetFor(ModuleVibeComplex, "")
	require.NoError(t, err)

	first := StockReceipt{
		Code:       "SUGAR-02",
		Name:       "Sugar",
		Unit:       "kg",
		Quantity:   decimal.NewFromInt(10),
		Rate:       decimal.RequireFromString("0.80"),
		BillNumber: "B-101",
		Date:       time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
	}
	_, err = ApplyStockReceipt(ctx, db, target, first, DefaultStockPolicy())
	require.NoError(t, err)

	second := first
	second.Quantity = decimal.NewFromInt(7)
	second.Rate = decimal.RequireFromString("0.95")
	second.BillNumber = "B-102"
	created, err := ApplyStockReceipt(ctx, db, target, second, DefaultStockPolicy())
	require.NoError(t, err)
	assert.False(t, created)

	stocks, err := ListRawMaterialStocks(ctx, db, target.Table)
	require.NoError(t, err)
	require.Len(t, stocks, 1)
	assert.True(t, stocks[0].CurrentStock.Equal(decimal.NewFromInt(17)), "got %s", stocks[0].CurrentStock)
	// The unit price always reflects the latest bill.
	assert.True(t, stocks[0].UnitPrice.Equal(decimal.RequireFromString("0.95")))
	assert.Contains(t, stocks[0].Notes, "bill B-101")
	assert.Contains(t, stocks[0].Notes, "Received 7 units from bill B-102")
}

func TestApplyStockReceiptRejectsBadInput(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	target, _, err := StockTargetFor(ModuleMall360, "")
	require.NoError(t, err)

	_, err = ApplyStockReceipt(ctx, db, target, StockReceipt{Code: "  "}, DefaultStockPolicy())
	assert.Error(t, err)

	_, err = ApplyStockReceipt(ctx, db, target, StockReceipt{
		Code:     "X-1",
		Quantity: decimal.NewFromInt(-4),
	}, DefaultStockPolicy())
	assert.Error(t, err)
}

func TestStockTablesCoverEveryModule(t *testing.T) {
	tables := StockTables()
	assert.Len(t, tables, 6)

	seen := map[ModuleId]bool{}
	for _, target := range tables {
		seen[target.Module] = true
	}
	for _, module := range AllModules() {
		assert.True(t, seen[module], string(module))
	}
}
