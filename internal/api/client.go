package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"expeditor/internal/models"
)

// StatusAll requests the unfiltered order board; the server-side filter is
// omitted entirely for it.
const StatusAll = "all"

// TokenSource supplies the bearer token attached to every request. The
// second return is false when no credential is available.
type TokenSource interface {
	Token() (string, bool)
}

// Client issues typed requests against the POS backend and normalizes its
// envelope responses. It holds no order state; the synchronization loop owns
// that.
type Client struct {
	httpClient    *http.Client
	baseURL       string
	tokens        TokenSource
	onAuthFailure func()
}

// NewClient creates an API client for the given base URL, for example
// "http://localhost:8080/api/v1". A nil TokenSource sends unauthenticated
// requests.
func NewClient(baseURL string, tokens TokenSource) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: time.Second * 10,
		},
		baseURL: baseURL,
		tokens:  tokens,
	}
}

// SetHTTPClient replaces the underlying HTTP client. Useful for tests and
// for callers that need custom timeouts.
func (c *Client) SetHTTPClient(hc *http.Client) {
	c.httpClient = hc
}

// OnAuthFailure registers a hook invoked whenever the backend answers 401.
// The session layer uses this to clear the stored credential.
func (c *Client) OnAuthFailure(fn func()) {
	c.onAuthFailure = fn
}

// Ping reports whether the backend is reachable and healthy.
func (c *Client) Ping(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return false
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// FetchOrders retrieves the kitchen-visible orders. A status of "" or "all"
// returns the unfiltered board.
func (c *Client) FetchOrders(ctx context.Context, status string) ([]models.Order, error) {
	query := url.Values{}
	if status != "" && status != StatusAll {
		query.Set("status", status)
	}

	orders, err := do[[]models.Order](c, ctx, http.MethodGet, "/kitchen/orders", query, nil)
	if err != nil {
		return nil, err
	}
	return orders, nil
}

// SetItemStatus requests a status change for a single order item.
func (c *Client) SetItemStatus(ctx context.Context, orderID, itemID string, status models.ItemStatus) error {
	path := fmt.Sprintf("/kitchen/orders/%s/items/%s/status", orderID, itemID)
	body := map[string]string{"status": string(status)}

	_, err := do[json.RawMessage](c, ctx, http.MethodPatch, path, nil, body)
	return err
}

// SetOrderStatus requests a status change for a whole order and returns the
// updated order as the backend sees it. Notes are optional.
func (c *Client) SetOrderStatus(ctx context.Context, orderID string, status models.OrderStatus, notes string) (*models.Order, error) {
	path := fmt.Sprintf("/orders/%s/status", orderID)
	body := struct {
		Status models.OrderStatus `json:"status"`
		Notes  string             `json:"notes,omitempty"`
	}{Status: status, Notes: notes}

	order, err := do[models.Order](c, ctx, http.MethodPatch, path, nil, body)
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// Login exchanges credentials for a bearer token.
func (c *Client) Login(ctx context.Context, username, password string) (*models.LoginResponse, error) {
	body := models.LoginRequest{Username: username, Password: password}
	login, err := do[models.LoginResponse](c, ctx, http.MethodPost, "/auth/login", nil, body)
	if err != nil {
		return nil, err
	}
	return &login, nil
}

// Logout invalidates the current session server-side. The local credential
// is the session layer's responsibility.
func (c *Client) Logout(ctx context.Context) error {
	_, err := do[json.RawMessage](c, ctx, http.MethodPost, "/auth/logout", nil, nil)
	return err
}

// CurrentUser fetches the operator bound to the current token.
func (c *Client) CurrentUser(ctx context.Context) (*models.User, error) {
	user, err := do[models.User](c, ctx, http.MethodGet, "/auth/me", nil, nil)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// do performs one request and unwraps the response envelope. Transport
// failures become *NetworkError, 401 becomes *AuthError (after firing the
// auth-failure hook), and failure envelopes become *APIError.
func do[T any](c *Client, ctx context.Context, method, path string, query url.Values, body any) (T, error) {
	var zero T

	var reqBody *bytes.Buffer
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return zero, fmt.Errorf("encoding request body: %w", err)
		}
		reqBody = bytes.NewBuffer(data)
	} else {
		reqBody = &bytes.Buffer{}
	}

	fullURL := c.baseURL + path
	if len(query) > 0 {
		fullURL += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, reqBody)
	if err != nil {
		return zero, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.tokens != nil {
		if token, ok := c.tokens.Token(); ok {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return zero, &NetworkError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		if c.onAuthFailure != nil {
			c.onAuthFailure()
		}
		var envelope models.Envelope[json.RawMessage]
		_ = json.NewDecoder(resp.Body).Decode(&envelope)
		return zero, &AuthError{Message: envelope.Message}
	}

	var envelope models.Envelope[T]
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return zero, &APIError{StatusCode: resp.StatusCode, Message: fmt.Sprintf("malformed response: %v", err)}
	}

	if !envelope.Success {
		return zero, &APIError{StatusCode: resp.StatusCode, Message: envelope.Message}
	}

	return envelope.Data, nil
}
