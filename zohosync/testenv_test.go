package zohosync

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tlbgroup/mkitchen-backend/models"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, models.MigrateTablesOn(db))
	return db
}

// fakeZoho serves the bills endpoints the client talks to.
type fakeZoho struct {
	mu      sync.Mutex
	bills   []ZohoBill
	perPage int
	// requests counts list-endpoint hits, for pagination assertions.
	listRequests int
}

func (f *fakeZoho) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()

		if r.Header.Get("Authorization") == "" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"code":57,"message":"no auth"}`))
			return
		}

		path := strings.TrimPrefix(r.URL.Path, "/inventory/v1/bills")
		if path == "" || path == "/" {
			f.listRequests++
			page, _ := strconv.Atoi(r.URL.Query().Get("page"))
			if page < 1 {
				page = 1
			}
			perPage := f.perPage
			if perPage <= 0 {
				perPage = 200
			}
			start := (page - 1) * perPage
			end := start + perPage
			if start > len(f.bills) {
				start = len(f.bills)
			}
			if end > len(f.bills) {
				end = len(f.bills)
			}
			_ = json.NewEncoder(w).Encode(zohoEnvelope{
				Code:  0,
				Bills: f.bills[start:end],
				PageContext: zohoPageContext{
					Page:        page,
					PerPage:     perPage,
					HasMorePage: end < len(f.bills),
				},
			})
			return
		}

		billId := strings.Trim(path, "/")
		for i := range f.bills {
			if f.bills[i].BillId == billId {
				_ = json.NewEncoder(w).Encode(zohoEnvelope{Code: 0, Bill: &f.bills[i]})
				return
			}
		}
		_ = json.NewEncoder(w).Encode(zohoEnvelope{Code: 1004, Message: "bill not found"})
	}
}

// newTestClient points a zohoClient at the fake server.
func newTestClient(t *testing.T, fake *fakeZoho) *zohoClient {
	t.Helper()

	srv := httptest.NewServer(fake.handler())
	t.Cleanup(srv.Close)

	t.Setenv("ZOHO_API_BASE_URL", srv.URL)
	t.Setenv("ZOHO_ACCESS_TOKEN", "test-token")
	t.Setenv("ZOHO_RATE_LIMIT_PER_MIN", "6000000")
	t.Setenv("SNAPSHOT_DIR", t.TempDir())

	client, err := newZohoClient()
	require.NoError(t, err)
	return client
}

func centralKitchenBill(billId string, billNumber string) ZohoBill {
	return ZohoBill{
		BillId:       billId,
		BillNumber:   billNumber,
		VendorId:     "V-1",
		VendorName:   "Gulf Traders",
		Status:       "open",
		Date:         "2026-08-01",
		Total:        flexNumber("131.25"),
		LocationName: "TLB Central Kitchen",
		LineItems: []ZohoLineItem{
			{
				ItemId:      "I-1",
				Sku:         "FLOUR-01",
				Name:        "Flour",
				AccountName: "Inventory Raw",
				Quantity:    flexNumber("100"),
				Rate:        flexNumber("1.25"),
				ItemTotal:   flexNumber("125"),
				Unit:        "kg",
			},
			{
				ItemId:      "I-2",
				Sku:         "CAKE-09",
				Name:        "Cake Base",
				AccountName: "Inventory Asset",
				Quantity:    flexNumber("5"),
				Rate:        flexNumber("1.25"),
				ItemTotal:   flexNumber("6.25"),
				Unit:        "pcs",
			},
			{
				ItemId:      "I-3",
				Sku:         "RENT-00",
				Name:        "Kitchen Rent",
				AccountName: "Office Rent",
				Quantity:    flexNumber("1"),
				Rate:        flexNumber("0"),
				ItemTotal:   flexNumber("0"),
				Unit:        "",
			},
		},
	}
}
