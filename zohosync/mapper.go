package zohosync

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tlbgroup/mkitchen-backend/models"
)

const poNumberPrefix = "PO-ZOHO-"

// derivePONumber builds the deterministic PO number from a bill. The bill
// number is preferred; the bill id is the fallback so every bill always maps
// to exactly one PO.
func derivePONumber(bill ZohoBill) string {
	base := strings.TrimSpace(bill.BillNumber)
	if base == "" {
		base = strings.TrimSpace(bill.BillId)
	}
	return strings.ToUpper(poNumberPrefix + base)
}

// translateBillStatus maps Zoho bill statuses onto the internal purchase-order
// vocabulary. Unknown statuses fall back to Draft rather than failing the
// sync.
func translateBillStatus(zohoStatus string) string {
	switch strings.ToLower(strings.TrimSpace(zohoStatus)) {
	case "draft":
		return models.POStatusDraft
	case "open":
		return models.POStatusSent
	case "overdue":
		return models.POStatusSent
	case "paid":
		return models.POStatusCompleted
	case "partially_paid":
		return models.POStatusPartial
	case "void":
		return models.POStatusCancelled
	case "cancelled":
		return models.POStatusCancelled
	default:
		return models.POStatusDraft
	}
}

// lineTotal applies the line amount policy: trust the external total when it
// is non-zero, otherwise compute quantity times rate, otherwise zero.
func lineTotal(item ZohoLineItem) decimal.Decimal {
	total := decimalFromNumber(item.ItemTotal)
	if !total.IsZero() {
		return total
	}
	qty := decimalFromNumber(item.Quantity)
	rate := decimalFromNumber(item.Rate)
	if !qty.IsZero() && !rate.IsZero() {
		return qty.Mul(rate)
	}
	return decimal.Zero
}

func decimalFromNumber(n interface{ String() string }) decimal.Decimal {
	s := strings.TrimSpace(n.String())
	if s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func parseBillDate(s string) time.Time {
	t, err := time.Parse("2006-01-02", strings.TrimSpace(s))
	if err != nil {
		return time.Now()
	}
	return t
}

// mapBillToPurchaseOrder is the pure projection from a Zoho bill to a PO
// input. No IO here: everything about the translation is testable in
// isolation.
func mapBillToPurchaseOrder(bill ZohoBill) *models.NewPurchaseOrder {
	supplierName := strings.TrimSpace(bill.VendorName)
	if supplierName == "" {
		supplierName = "Unknown Vendor"
	}
	input := &models.NewPurchaseOrder{
		PONumber:         derivePONumber(bill),
		SupplierId:       bill.VendorId,
		SupplierName:     supplierName,
		OrderDate:        parseBillDate(bill.Date),
		Status:           translateBillStatus(bill.Status),
		TotalAmount:      decimalFromNumber(bill.Total),
		Terms:            bill.Terms,
		Notes:            bill.Notes,
		ZohoBillId:       bill.BillId,
		ZohoLocationName: bill.Location(),
	}
	if due := strings.TrimSpace(bill.DueDate); due != "" {
		if t, err := time.Parse("2006-01-02", due); err == nil {
			input.ExpectedDeliveryDate = &t
		}
	}
	for _, item := range bill.LineItems {
		input.Items = append(input.Items, models.NewPurchaseOrderItem{
			MaterialId:   item.ItemId,
			MaterialCode: materialCode(item),
			MaterialName: item.Name,
			Quantity:     decimalFromNumber(item.Quantity),
			UnitPrice:    decimalFromNumber(item.Rate),
			TotalPrice:   lineTotal(item),
			Unit:         item.Unit,
			AccountName:  item.AccountName,
			Notes:        item.Description,
		})
	}
	return input
}

// materialCode prefers the SKU, then the external item id, then a slug of the
// item name so a stock row can always be keyed.
func materialCode(item ZohoLineItem) string {
	if sku := strings.TrimSpace(item.Sku); sku != "" {
		return sku
	}
	if id := strings.TrimSpace(item.ItemId); id != "" {
		return id
	}
	return strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(item.Name), " ", "-"))
}
