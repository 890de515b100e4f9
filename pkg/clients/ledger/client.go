// Package ledger talks to the append-only ledger gateway that notarizes
// prescription events.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-resty/resty/v2"

	"github.com/mamadbah2/meditrack/internal/config"
)

// Client appends events to the ledger.
type Client interface {
	AddEvent(ctx context.Context, actionType, subjectID, contentHash string) (string, error)
}

// APIClient is a resty-backed implementation of Client.
type APIClient struct {
	httpClient *resty.Client
}

// NewClient builds a gateway client. The per-call deadline comes from the
// caller's context.
func NewClient(cfg config.LedgerConfig) *APIClient {
	restyClient := resty.New()
	restyClient.
		SetBaseURL(strings.TrimSuffix(cfg.BaseURL, "/")).
		SetHeader("Content-Type", "application/json")
	if cfg.APIKey != "" {
		restyClient.SetAuthToken(cfg.APIKey)
	}

	return &APIClient{httpClient: restyClient}
}

type addEventRequest struct {
	ActionType string `json:"actionType"`
	SubjectID  string `json:"subjectId"`
	RecordHash string `json:"recordHash"`
}

type addEventResponse struct {
	TxHash string `json:"txHash"`
}

type apiError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// AddEvent posts the event and returns the transaction hash.
func (c *APIClient) AddEvent(ctx context.Context, actionType, subjectID, contentHash string) (string, error) {
	result := new(addEventResponse)
	apiErr := new(apiError)

	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(addEventRequest{ActionType: actionType, SubjectID: subjectID, RecordHash: contentHash}).
		SetResult(result).
		SetError(apiErr).
		Post("/events")
	if err != nil {
		return "", fmt.Errorf("ledger add event: %w", err)
	}

	if resp.StatusCode() >= http.StatusBadRequest {
		msg := apiErr.Message
		if msg == "" {
			msg = apiErr.Error
		}
		return "", fmt.Errorf("ledger api error: status=%d, message=%s", resp.StatusCode(), msg)
	}

	if result.TxHash == "" {
		return "", errors.New("ledger api returned no txHash")
	}
	return result.TxHash, nil
}
