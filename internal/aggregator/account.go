package aggregator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"stlauncher/pkg/types"
)

const (
	ordersPath          = "/api/general/orders"
	defaultFetchTimeout = 15 * time.Second
)

// AccountClient lists an account's API keys from the account endpoint.
type AccountClient struct {
	BaseURL string
	Client  *http.Client
	Timeout time.Duration
}

type ordersUserData struct {
	UserID         any    `json:"userId"`
	UserEmail      string `json:"userEmail"`
	Password       string `json:"password"`
	InvitationCode string `json:"invitationCode"`
}

type ordersRequest struct {
	// UserData is itself a JSON document encoded as a string.
	UserData string `json:"userData"`
	Page     int    `json:"page"`
}

type ordersResponse struct {
	Code int             `json:"code"`
	Msg  json.RawMessage `json:"msg"`
}

type orderItem struct {
	APIKey  string          `json:"api_key"`
	Balance json.RawMessage `json:"balance"`
}

// FetchKeys returns the account's keys with a strictly positive balance, in
// the order the endpoint lists them. An empty result is ErrNoUsableKeys.
func (c *AccountClient) FetchKeys(ctx context.Context, token string, info types.AccountInfo) ([]KeyRecord, error) {
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = defaultFetchTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	userID := info.UserID
	if !truthy(userID) {
		userID = info.UID
	}
	ud, err := json.Marshal(ordersUserData{
		UserID:         userID,
		UserEmail:      info.UserEmail,
		Password:       info.Password,
		InvitationCode: info.InvitationCode,
	})
	if err != nil {
		return nil, keyFetchError("encode user data: %v", err)
	}
	body, err := json.Marshal(ordersRequest{UserData: string(ud), Page: 1})
	if err != nil {
		return nil, keyFetchError("encode request: %v", err)
	}

	url := strings.TrimRight(c.BaseURL, "/") + ordersPath
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, keyFetchError("%v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	client := c.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, keyFetchError("%v", err)
	}
	defer resp.Body.Close()

	var out ordersResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 4<<20)).Decode(&out); err != nil {
		return nil, keyFetchError("decode response (HTTP %d): %v", resp.StatusCode, err)
	}
	var items []orderItem
	if out.Code != http.StatusOK || json.Unmarshal(out.Msg, &items) != nil || len(items) == 0 {
		return nil, keyFetchError("account endpoint answered code %d", out.Code)
	}

	keys := make([]KeyRecord, 0, len(items))
	for _, it := range items {
		bal := parseBalance(it.Balance)
		if it.APIKey == "" || bal <= 0 {
			continue
		}
		keys = append(keys, KeyRecord{Key: it.APIKey, Balance: bal})
	}
	if len(keys) == 0 {
		return nil, ErrNoUsableKeys
	}
	return keys, nil
}

var leadingFloat = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?`)

// parseBalance accepts a JSON number or a string with a numeric prefix.
// Anything else is zero.
func parseBalance(raw json.RawMessage) float64 {
	s := strings.TrimSpace(string(raw))
	if strings.HasPrefix(s, `"`) {
		if err := json.Unmarshal(raw, &s); err != nil {
			return 0
		}
		s = strings.TrimSpace(s)
	}
	m := leadingFloat.FindString(s)
	if m == "" {
		return 0
	}
	f, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return 0
	}
	return f
}

// truthy mirrors the account endpoint's notion of an absent identifier.
func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case string:
		return t != ""
	case float64:
		return t != 0
	case bool:
		return t
	case json.Number:
		return t.String() != "0" && t.String() != ""
	default:
		return fmt.Sprint(t) != ""
	}
}
