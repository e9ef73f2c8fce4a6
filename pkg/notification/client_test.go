package notification

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"labot-admin-go/internal/config"
)

func TestNotifySendsExpectedRequest(t *testing.T) {
	var got Notification
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/admin/notifications", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "secret", r.Header.Get("x-api-key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	client := NewClient(config.NotificationConfig{BaseURL: srv.URL + "/", APIKey: "secret"})
	err := client.Notify(context.Background(), Notification{Level: "warning", Type: "la bot", Message: "hola", UserID: 42})
	require.NoError(t, err)

	assert.Equal(t, Notification{Level: "warning", Type: "la bot", Message: "hola", UserID: 42}, got)
}

func TestNotifyNon2xxIsDeliveryError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"bad api key"}`))
	}))
	defer srv.Close()

	client := NewClient(config.NotificationConfig{BaseURL: srv.URL, APIKey: "wrong", RatePerSecond: 100, Burst: 1})
	err := client.Notify(context.Background(), Notification{UserID: 1})
	require.Error(t, err)

	var delivery *DeliveryError
	require.True(t, errors.As(err, &delivery))
	assert.Equal(t, http.StatusUnauthorized, delivery.StatusCode)
	assert.Contains(t, delivery.Body, "bad api key")
}

func TestNotifyHonoursCancelledContext(t *testing.T) {
	client := NewClient(config.NotificationConfig{BaseURL: "http://127.0.0.1:1", RatePerSecond: 1, Burst: 1})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := client.Notify(ctx, Notification{UserID: 1})
	require.Error(t, err)
}
