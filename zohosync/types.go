package zohosync

import (
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"
)

// Wire shapes for the Zoho Books bills API. Zoho wraps every response in an
// envelope with a numeric code; 0 means success regardless of HTTP status.
type zohoEnvelope struct {
	Code        int             `json:"code"`
	Message     string          `json:"message"`
	Bills       []ZohoBill      `json:"bills"`
	Bill        *ZohoBill       `json:"bill"`
	PageContext zohoPageContext `json:"page_context"`
}

type zohoPageContext struct {
	Page        int  `json:"page"`
	PerPage     int  `json:"per_page"`
	HasMorePage bool `json:"has_more_page"`
}

// flexNumber holds a numeric field that Zoho emits inconsistently: some
// organizations send JSON numbers, others quoted strings. Decoding never
// fails, so one malformed value cannot sink a whole bills page; parsing
// happens per line item when the value is used.
type flexNumber string

func (n *flexNumber) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "null" {
		*n = ""
		return nil
	}
	if len(s) >= 2 && s[0] == '"' {
		var unquoted string
		if err := json.Unmarshal(data, &unquoted); err == nil {
			*n = flexNumber(unquoted)
			return nil
		}
	}
	*n = flexNumber(s)
	return nil
}

func (n flexNumber) MarshalJSON() ([]byte, error) {
	if n != "" {
		if _, err := decimal.NewFromString(string(n)); err == nil {
			return []byte(n), nil
		}
	}
	return json.Marshal(string(n))
}

func (n flexNumber) String() string { return string(n) }

// Decimal parses the value strictly. Empty means zero; anything else that is
// not a number is an error for the caller to attribute to its line item.
func (n flexNumber) Decimal() (decimal.Decimal, error) {
	s := strings.TrimSpace(string(n))
	if s == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(s)
}

type ZohoBill struct {
	BillId       string         `json:"bill_id"`
	BillNumber   string         `json:"bill_number"`
	VendorId     string         `json:"vendor_id"`
	VendorName   string         `json:"vendor_name"`
	Status       string         `json:"status"`
	Date         string         `json:"date"`
	DueDate      string         `json:"due_date"`
	Total        flexNumber     `json:"total"`
	Notes        string         `json:"notes"`
	Terms        string         `json:"terms"`
	LocationName string         `json:"location_name"`
	BranchName   string         `json:"branch_name"`
	LineItems    []ZohoLineItem `json:"line_items"`
}

type ZohoLineItem struct {
	LineItemId  string     `json:"line_item_id"`
	ItemId      string     `json:"item_id"`
	Sku         string     `json:"sku"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	AccountName string     `json:"account_name"`
	Quantity    flexNumber `json:"quantity"`
	Rate        flexNumber `json:"rate"`
	ItemTotal   flexNumber `json:"item_total"`
	Unit        string     `json:"unit"`
}

// Location returns the bill's outlet name, preferring location_name but
// accepting branch_name from older Zoho organizations.
func (b ZohoBill) Location() string {
	if b.LocationName != "" {
		return b.LocationName
	}
	return b.BranchName
}

type zohoTokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
	Error       string `json:"error"`
}

// Handler request/response DTOs.

// maxSummaryErrors bounds the per-item error lists returned in API payloads;
// the full detail always lands in sync_errors rows.
const maxSummaryErrors = 5

type ProcessMultipleRequest struct {
	BillIds []string `json:"bill_ids" validate:"required,min=1"`
}

type ProcessResult struct {
	BillId   string `json:"bill_id"`
	PONumber string `json:"po_number,omitempty"`
	Status   string `json:"status"`
	Message  string `json:"message,omitempty"`
}

type SyncSummary struct {
	Added   int      `json:"added"`
	Updated int      `json:"updated"`
	Failed  int      `json:"failed"`
	Errors  []string `json:"errors,omitempty"`
}

type ProcessSummary struct {
	Processed int             `json:"processed"`
	Skipped   int             `json:"skipped"`
	Failed    int             `json:"failed"`
	Results   []ProcessResult `json:"results,omitempty"`
	Errors    []string        `json:"errors,omitempty"`
}

// ProcessPubSubPayload is the message published to trigger an async
// processing run.
type ProcessPubSubPayload struct {
	RunId       uint     `json:"run_id"`
	BillIds     []string `json:"bill_ids,omitempty"`
	TriggeredBy string   `json:"triggered_by"`
}
