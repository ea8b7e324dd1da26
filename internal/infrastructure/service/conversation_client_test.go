package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEnsureChannel_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/channels", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))

		var req ensureChannelRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "user-a", req.UserA)
		assert.Equal(t, "user-b", req.UserB)
		assert.Equal(t, "2026-W07", req.WeekKey)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(ensureChannelResponse{ChannelRef: "conv-123"})
	}))
	defer server.Close()

	cfg := DefaultConversationClientConfig(server.URL)
	cfg.APIKey = "secret"
	client := NewConversationClient(cfg)

	ref, err := client.EnsureChannel(context.Background(), "user-a", "user-b", "2026-W07")
	assert.NoError(t, err)
	assert.Equal(t, "conv-123", ref)
}

func TestEnsureChannel_ClientErrorIsNotRetried(t *testing.T) {
	var requests atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		http.Error(w, "bad pair", http.StatusBadRequest)
	}))
	defer server.Close()

	client := NewConversationClient(DefaultConversationClientConfig(server.URL))

	_, err := client.EnsureChannel(context.Background(), "user-a", "user-b", "2026-W07")
	assert.Error(t, err)
	assert.Equal(t, int64(1), requests.Load())
}

func TestEnsureChannel_RetriesServerError(t *testing.T) {
	var requests atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if requests.Add(1) == 1 {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(ensureChannelResponse{ChannelRef: "conv-456"})
	}))
	defer server.Close()

	client := NewConversationClient(DefaultConversationClientConfig(server.URL))

	ref, err := client.EnsureChannel(context.Background(), "user-a", "user-b", "2026-W07")
	assert.NoError(t, err)
	assert.Equal(t, "conv-456", ref)
	assert.Equal(t, int64(2), requests.Load())
}

func TestEnsureChannel_EmptyChannelRefIsError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(ensureChannelResponse{})
	}))
	defer server.Close()

	client := NewConversationClient(DefaultConversationClientConfig(server.URL))

	_, err := client.EnsureChannel(context.Background(), "user-a", "user-b", "2026-W07")
	assert.Error(t, err)
}
