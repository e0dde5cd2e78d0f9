package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"expeditor/internal/models"
)

type staticTokens string

func (s staticTokens) Token() (string, bool) { return string(s), s != "" }

func TestFetchOrders(t *testing.T) {
	var gotPath, gotQuery, gotAuth string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		gotAuth = r.Header.Get("Authorization")

		json.NewEncoder(w).Encode(models.Envelope[[]models.Order]{
			Success: true,
			Data: []models.Order{
				{ID: "o1", OrderNumber: "ORD001", Status: models.OrderStatusConfirmed},
				{ID: "o2", OrderNumber: "ORD002", Status: models.OrderStatusPreparing},
			},
		})
	}))
	defer server.Close()

	client := NewClient(server.URL, staticTokens("tok-123"))

	orders, err := client.FetchOrders(context.Background(), string(models.OrderStatusConfirmed))
	assert.NoError(t, err)
	assert.Len(t, orders, 2)
	assert.Equal(t, "/kitchen/orders", gotPath)
	assert.Equal(t, "status=confirmed", gotQuery)
	assert.Equal(t, "Bearer tok-123", gotAuth)
}

func TestFetchOrders_AllOmitsFilter(t *testing.T) {
	var gotQuery string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		json.NewEncoder(w).Encode(models.Envelope[[]models.Order]{Success: true})
	}))
	defer server.Close()

	client := NewClient(server.URL, nil)

	_, err := client.FetchOrders(context.Background(), StatusAll)
	assert.NoError(t, err)
	assert.Empty(t, gotQuery)

	_, err = client.FetchOrders(context.Background(), "")
	assert.NoError(t, err)
	assert.Empty(t, gotQuery)
}

func TestFetchOrders_FailureEnvelope(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(models.Envelope[[]models.Order]{
			Success: false,
			Message: "db down",
		})
	}))
	defer server.Close()

	client := NewClient(server.URL, nil)

	_, err := client.FetchOrders(context.Background(), "ready")
	var apiErr *APIError
	assert.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "db down", apiErr.Message)
}

func TestFetchOrders_NetworkError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // deliberately unreachable

	client := NewClient(server.URL, nil)

	_, err := client.FetchOrders(context.Background(), "")
	var netErr *NetworkError
	assert.ErrorAs(t, err, &netErr)
	assert.NotNil(t, errors.Unwrap(netErr))
}

func TestAuthFailureHookOn401(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(models.Envelope[json.RawMessage]{
			Success: false,
			Message: "token expired",
		})
	}))
	defer server.Close()

	client := NewClient(server.URL, staticTokens("stale"))

	hookFired := false
	client.OnAuthFailure(func() { hookFired = true })

	_, err := client.FetchOrders(context.Background(), "")
	var authErr *AuthError
	assert.ErrorAs(t, err, &authErr)
	assert.Equal(t, "token expired", authErr.Message)
	assert.True(t, hookFired)
}

func TestSetItemStatus(t *testing.T) {
	var gotMethod, gotPath string
	var gotBody map[string]string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		json.NewDecoder(r.Body).Decode(&gotBody)
		json.NewEncoder(w).Encode(models.Envelope[json.RawMessage]{Success: true})
	}))
	defer server.Close()

	client := NewClient(server.URL, nil)

	err := client.SetItemStatus(context.Background(), "o1", "i1", models.ItemStatusReady)
	assert.NoError(t, err)
	assert.Equal(t, http.MethodPatch, gotMethod)
	assert.Equal(t, "/kitchen/orders/o1/items/i1/status", gotPath)
	assert.Equal(t, map[string]string{"status": "ready"}, gotBody)
}

func TestSetOrderStatus(t *testing.T) {
	var gotPath string
	var gotBody map[string]any

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		json.NewDecoder(r.Body).Decode(&gotBody)
		json.NewEncoder(w).Encode(models.Envelope[models.Order]{
			Success: true,
			Data:    models.Order{ID: "o1", Status: models.OrderStatusPreparing},
		})
	}))
	defer server.Close()

	client := NewClient(server.URL, nil)

	order, err := client.SetOrderStatus(context.Background(), "o1", models.OrderStatusPreparing, "")
	assert.NoError(t, err)
	assert.Equal(t, "/orders/o1/status", gotPath)
	assert.Equal(t, models.OrderStatusPreparing, order.Status)

	// Empty notes stay off the wire
	_, hasNotes := gotBody["notes"]
	assert.False(t, hasNotes)

	_, err = client.SetOrderStatus(context.Background(), "o1", models.OrderStatusReady, "Kitchen update")
	assert.NoError(t, err)
	assert.Equal(t, "Kitchen update", gotBody["notes"])
}

func TestLogin(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req models.LoginRequest
		json.NewDecoder(r.Body).Decode(&req)

		if req.Username != "chef" || req.Password != "secret" {
			json.NewEncoder(w).Encode(models.Envelope[models.LoginResponse]{
				Success: false,
				Message: "invalid credentials",
			})
			return
		}
		json.NewEncoder(w).Encode(models.Envelope[models.LoginResponse]{
			Success: true,
			Data: models.LoginResponse{
				Token: "issued-token",
				User:  models.User{Username: "chef", Role: "kitchen"},
			},
		})
	}))
	defer server.Close()

	client := NewClient(server.URL, nil)

	login, err := client.Login(context.Background(), "chef", "secret")
	assert.NoError(t, err)
	assert.Equal(t, "issued-token", login.Token)
	assert.Equal(t, "kitchen", login.User.Role)

	_, err = client.Login(context.Background(), "chef", "wrong")
	var apiErr *APIError
	assert.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "invalid credentials", apiErr.Message)
}

func TestPing(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := NewClient(server.URL, nil)
	assert.True(t, client.Ping(context.Background()))

	server.Close()
	assert.False(t, client.Ping(context.Background()))
}

func TestRequestHonorsContext(t *testing.T) {
	blocked := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-blocked
	}))
	defer server.Close()
	defer close(blocked)

	client := NewClient(server.URL, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := client.FetchOrders(ctx, "")
	var netErr *NetworkError
	assert.ErrorAs(t, err, &netErr)
}
