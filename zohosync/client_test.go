package zohosync

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchAllBillsPaginates(t *testing.T) {
	fake := &fakeZoho{perPage: 2}
	for _, id := range []string{"B1", "B2", "B3", "B4", "B5"} {
		fake.bills = append(fake.bills, centralKitchenBill(id, id))
	}
	client := newTestClient(t, fake)
	t.Setenv("ZOHO_PAGE_SIZE", "2")
	// Page size is read per fetch, so rebuild is not needed.

	bills, err := client.fetchAllBills(context.Background())
	require.NoError(t, err)
	assert.Len(t, bills, 5)
	assert.Equal(t, "B1", bills[0].BillId)
	assert.Equal(t, "B5", bills[4].BillId)
	assert.Equal(t, 3, fake.listRequests)
}

func TestFetchBillById(t *testing.T) {
	fake := &fakeZoho{bills: []ZohoBill{centralKitchenBill("B7", "700")}}
	client := newTestClient(t, fake)

	bill, err := client.fetchBillById(context.Background(), "B7")
	require.NoError(t, err)
	assert.Equal(t, "700", bill.BillNumber)
	assert.Len(t, bill.LineItems, 3)

	// Zoho reports a missing bill through a non-zero envelope code.
	_, err = client.fetchBillById(context.Background(), "missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1004")

	_, err = client.fetchBillById(context.Background(), "")
	assert.Error(t, err)
}

func TestClientRejectsHTTPErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream exploded", http.StatusBadGateway)
	}))
	t.Cleanup(srv.Close)

	t.Setenv("ZOHO_API_BASE_URL", srv.URL)
	t.Setenv("ZOHO_ACCESS_TOKEN", "test-token")
	t.Setenv("ZOHO_RATE_LIMIT_PER_MIN", "6000000")

	client, err := newZohoClient()
	require.NoError(t, err)

	_, err = client.fetchAllBills(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestNewZohoClientRequiresCredentials(t *testing.T) {
	t.Setenv("ZOHO_ACCESS_TOKEN", "")
	t.Setenv("ZOHO_REFRESH_TOKEN", "")

	_, err := newZohoClient()
	assert.Error(t, err)
}

func TestTokenRefreshExchange(t *testing.T) {
	accounts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/oauth/v2/token", r.URL.Path)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "refresh_token", r.Form.Get("grant_type"))
		assert.Equal(t, "rt-1", r.Form.Get("refresh_token"))
		_, _ = w.Write([]byte(`{"access_token":"fresh-token","expires_in":3600}`))
	}))
	t.Cleanup(accounts.Close)

	t.Setenv("ZOHO_ACCESS_TOKEN", "")
	t.Setenv("ZOHO_REFRESH_TOKEN", "rt-1")
	t.Setenv("ZOHO_CLIENT_ID", "cid")
	t.Setenv("ZOHO_CLIENT_SECRET", "secret")
	t.Setenv("ZOHO_ACCOUNTS_URL", accounts.URL)
	t.Setenv("ZOHO_RATE_LIMIT_PER_MIN", "6000000")

	client, err := newZohoClient()
	require.NoError(t, err)

	token, err := client.token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "fresh-token", token)

	// The token is cached until expiry; a second call must not re-exchange.
	accounts.Close()
	token, err = client.token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "fresh-token", token)
}
