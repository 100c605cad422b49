package chatclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/Gangireddy387/OnlineNotebook/internal/app/models/dto"
	"github.com/google/uuid"
)

// HTTPFetcher loads chat history from the REST API
type HTTPFetcher struct {
	BaseURL string
	Token   string
	Client  *http.Client
}

// NewHTTPFetcher creates a fetcher for baseURL, e.g. http://host
func NewHTTPFetcher(baseURL, token string) *HTTPFetcher {
	return &HTTPFetcher{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Token:   token,
		Client:  &http.Client{Timeout: 10 * time.Second},
	}
}

type messagesEnvelope struct {
	Success bool                  `json:"success"`
	Data    []dto.MessageResponse `json:"data"`
	Error   *dto.ErrorDetail      `json:"error"`
}

// FetchMessages implements MessageFetcher
func (f *HTTPFetcher) FetchMessages(ctx context.Context, chatID uuid.UUID) ([]dto.MessageResponse, error) {
	endpoint := fmt.Sprintf("%s/api/v1/chat/%s/messages", f.BaseURL, chatID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+f.Token)
	req.Header.Set("Accept", "application/json")

	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch messages: %w", err)
	}
	defer resp.Body.Close()

	var envelope messagesEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("failed to decode messages (status %d): %w", resp.StatusCode, err)
	}
	if resp.StatusCode != http.StatusOK || !envelope.Success {
		if envelope.Error != nil {
			return nil, fmt.Errorf("fetch messages: %s: %s", envelope.Error.Code, envelope.Error.Message)
		}
		return nil, fmt.Errorf("fetch messages: unexpected status %d", resp.StatusCode)
	}
	return envelope.Data, nil
}
