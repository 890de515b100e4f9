package ledger

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/meditrack/internal/config"
)

func TestAddEvent_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/events", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))

		var body addEventRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, addEventRequest{ActionType: "PrescriptionCreated", SubjectID: "a1", RecordHash: "0xabc"}, body)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"txHash":"0xdeadbeef"}`))
	}))
	defer srv.Close()

	client := NewClient(config.LedgerConfig{BaseURL: srv.URL + "/", APIKey: "secret"})
	tx, err := client.AddEvent(context.Background(), "PrescriptionCreated", "a1", "0xabc")
	require.NoError(t, err)
	assert.Equal(t, "0xdeadbeef", tx)
}

func TestAddEvent_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(`{"message":"chain unavailable"}`))
	}))
	defer srv.Close()

	client := NewClient(config.LedgerConfig{BaseURL: srv.URL})
	_, err := client.AddEvent(context.Background(), "PrescriptionCreated", "a1", "0xabc")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chain unavailable")
}

func TestAddEvent_RespectsContextDeadline(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	client := NewClient(config.LedgerConfig{BaseURL: srv.URL})
	_, err := client.AddEvent(ctx, "PrescriptionCreated", "a1", "0xabc")
	require.Error(t, err)
}
