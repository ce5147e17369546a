package zohosync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

type zohoClient struct {
	baseURL string
	orgID   string

	http    *http.Client
	limiter <-chan time.Time

	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

// newZohoClient builds a bills client from the environment. Either a static
// ZOHO_ACCESS_TOKEN or the OAuth refresh-token triple must be configured.
func newZohoClient() (*zohoClient, error) {
	baseURL := strings.TrimSpace(os.Getenv("ZOHO_API_BASE_URL"))
	if baseURL == "" {
		baseURL = "https://www.zohoapis.com"
	}
	orgID := strings.TrimSpace(os.Getenv("ZOHO_ORGANIZATION_ID"))

	staticToken := strings.TrimSpace(os.Getenv("ZOHO_ACCESS_TOKEN"))
	refreshToken := strings.TrimSpace(os.Getenv("ZOHO_REFRESH_TOKEN"))
	if staticToken == "" && refreshToken == "" {
		return nil, errors.New("zoho credentials missing: set ZOHO_ACCESS_TOKEN or ZOHO_REFRESH_TOKEN")
	}

	rateLimitPerMin := int64(60)
	if v := strings.TrimSpace(os.Getenv("ZOHO_RATE_LIMIT_PER_MIN")); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			rateLimitPerMin = n
		}
	}
	interval := time.Minute / time.Duration(rateLimitPerMin)

	c := &zohoClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		orgID:   orgID,
		http:    &http.Client{Timeout: 30 * time.Second},
		limiter: time.Tick(interval),
	}
	if staticToken != "" {
		c.accessToken = staticToken
		c.tokenExpiry = time.Now().Add(365 * 24 * time.Hour)
	}
	return c, nil
}

// token returns a usable access token, exchanging the refresh token at the
// Zoho accounts endpoint when the cached one is stale.
func (c *zohoClient) token(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.accessToken != "" && time.Now().Before(c.tokenExpiry.Add(-time.Minute)) {
		return c.accessToken, nil
	}

	accountsURL := strings.TrimSpace(os.Getenv("ZOHO_ACCOUNTS_URL"))
	if accountsURL == "" {
		accountsURL = "https://accounts.zoho.com"
	}
	form := url.Values{}
	form.Set("refresh_token", strings.TrimSpace(os.Getenv("ZOHO_REFRESH_TOKEN")))
	form.Set("client_id", strings.TrimSpace(os.Getenv("ZOHO_CLIENT_ID")))
	form.Set("client_secret", strings.TrimSpace(os.Getenv("ZOHO_CLIENT_SECRET")))
	form.Set("grant_type", "refresh_token")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		strings.TrimRight(accountsURL, "/")+"/oauth/v2/token",
		strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("zoho token exchange error %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var parsed zohoTokenResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", err
	}
	if parsed.Error != "" || parsed.AccessToken == "" {
		return "", fmt.Errorf("zoho token exchange rejected: %s", parsed.Error)
	}

	expiresIn := parsed.ExpiresIn
	if expiresIn <= 0 {
		expiresIn = 3600
	}
	c.accessToken = parsed.AccessToken
	c.tokenExpiry = time.Now().Add(time.Duration(expiresIn) * time.Second)
	return c.accessToken, nil
}

func (c *zohoClient) get(ctx context.Context, path string, params url.Values) (zohoEnvelope, error) {
	<-c.limiter

	token, err := c.token(ctx)
	if err != nil {
		return zohoEnvelope{}, err
	}

	if c.orgID != "" {
		if params == nil {
			params = url.Values{}
		}
		params.Set("organization_id", c.orgID)
	}

	endpoint := c.baseURL + path
	if len(params) > 0 {
		endpoint = endpoint + "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return zohoEnvelope{}, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return zohoEnvelope{}, err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return zohoEnvelope{}, fmt.Errorf("zoho api error %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var parsed zohoEnvelope
	if err := json.Unmarshal(body, &parsed); err != nil {
		return zohoEnvelope{}, err
	}
	if parsed.Code != 0 {
		return zohoEnvelope{}, fmt.Errorf("zoho api code %d: %s", parsed.Code, parsed.Message)
	}
	return parsed, nil
}

// fetchBillPage fetches one page of bills. Pages start at 1.
func (c *zohoClient) fetchBillPage(ctx context.Context, page int, perPage int) ([]ZohoBill, bool, error) {
	params := url.Values{}
	params.Set("page", strconv.Itoa(page))
	params.Set("per_page", strconv.Itoa(perPage))

	env, err := c.get(ctx, "/inventory/v1/bills", params)
	if err != nil {
		return nil, false, err
	}
	return env.Bills, env.PageContext.HasMorePage, nil
}

// fetchAllBills walks every page. Any page failure aborts the whole fetch:
// a partial bill list would make the sync report spurious deletions later.
func (c *zohoClient) fetchAllBills(ctx context.Context) ([]ZohoBill, error) {
	perPage := 200
	if v := strings.TrimSpace(os.Getenv("ZOHO_PAGE_SIZE")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			perPage = n
		}
	}

	var all []ZohoBill
	for page := 1; ; page++ {
		bills, hasMore, err := c.fetchBillPage(ctx, page, perPage)
		if err != nil {
			return nil, fmt.Errorf("fetch bills page %d: %w", page, err)
		}
		all = append(all, bills...)
		if !hasMore {
			break
		}
	}
	return all, nil
}

// fetchBillById fetches the full bill detail, line items included. The list
// endpoint omits line items, so processing always refetches.
func (c *zohoClient) fetchBillById(ctx context.Context, billId string) (*ZohoBill, error) {
	if strings.TrimSpace(billId) == "" {
		return nil, errors.New("bill id is empty")
	}
	env, err := c.get(ctx, "/inventory/v1/bills/"+url.PathEscape(billId), nil)
	if err != nil {
		return nil, err
	}
	if env.Bill == nil {
		return nil, fmt.Errorf("bill %s not found in response", billId)
	}
	return env.Bill, nil
}
