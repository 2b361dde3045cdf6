package notifier

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hsqsh/maisHack25/internal/dto"
)

func TestNotify(t *testing.T) {
	var got dto.NotifyRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/notify", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		json.NewEncoder(w).Encode(dto.NotifyResponse{Delivered: 2})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "s1")
	resp, err := client.Notify(context.Background(), "found", map[string]interface{}{"target": "bottle"})
	require.NoError(t, err)

	assert.Equal(t, 2, resp.Delivered)
	assert.Equal(t, "s1", got.Session)
	assert.Equal(t, "found", got.Type)
	assert.Equal(t, "bottle", got.Payload["target"])
}

func TestNotifyThrottledIsNotAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(dto.NotifyResponse{Delivered: 0, Throttled: true})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "s1")
	resp, err := client.Notify(context.Background(), "found", nil)
	require.NoError(t, err)
	assert.True(t, resp.Throttled)
}

func TestNotifyRelayError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"session is required"}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "")
	_, err := client.Notify(context.Background(), "found", nil)
	assert.ErrorContains(t, err, "relay error")
}
