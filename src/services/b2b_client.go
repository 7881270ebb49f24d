package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/username/purchasesync/backend/src/config"
	"github.com/username/purchasesync/backend/src/metrics"
	"github.com/username/purchasesync/backend/src/models"
)

// b2bClientImpl implements B2BService against the B2B-Center REST API
// (basic auth).
type b2bClientImpl struct {
	httpClient *http.Client
	baseURL    string
	username   string
	password   string
}

func NewB2BClient(cfg *config.AppConfig) B2BService {
	return &b2bClientImpl{
		httpClient: &http.Client{Timeout: cfg.HTTPClientTimeout},
		baseURL:    strings.TrimRight(cfg.B2BBaseURL, "/"),
		username:   cfg.B2BUsername,
		password:   cfg.B2BPassword,
	}
}

// Exists reports whether the purchase is present in B2B-Center. Only an
// explicit 404 counts as absent; 403 and server errors surface as upstream
// failures instead of being conflated with "does not exist".
func (c *b2bClientImpl) Exists(ctx context.Context, purchaseID string) (bool, error) {
	purchaseURL := fmt.Sprintf("%s/purchases/%s", c.baseURL, purchaseID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, purchaseURL, nil)
	if err != nil {
		return false, err
	}
	req.SetBasicAuth(c.username, c.password)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("failed to call B2B-Center purchase API for purchase %s: %w", purchaseID, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	metrics.ObserveUpstreamRequest("b2b", "exists", resp.StatusCode, time.Since(start))

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode <= 299:
		return true, nil
	case resp.StatusCode == http.StatusNotFound:
		return false, nil
	default:
		return false, &UpstreamError{System: "b2b", Operation: "exists", StatusCode: resp.StatusCode}
	}
}

type createPurchaseResponse struct {
	ID string `json:"id"`
}

// Create submits a new purchase with status forced to "active" and returns
// the id assigned by B2B-Center. A 409 conflict maps to ErrAlreadyExists so
// concurrent webhook redeliveries stay idempotent.
func (c *b2bClientImpl) Create(ctx context.Context, payload *models.CreatePurchaseRequest) (string, error) {
	payload.Status = models.PurchaseStatusActive

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal purchase creation payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/purchases", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.SetBasicAuth(c.username, c.password)
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to call B2B-Center purchase creation API: %w", err)
	}
	defer resp.Body.Close()
	metrics.ObserveUpstreamRequest("b2b", "create", resp.StatusCode, time.Since(start))

	if resp.StatusCode == http.StatusConflict {
		io.Copy(io.Discard, resp.Body)
		return "", ErrAlreadyExists
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		respBody, _ := io.ReadAll(resp.Body) // Read body for context
		return "", &CreationRejectedError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	var created createPurchaseResponse
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return "", fmt.Errorf("failed to decode B2B-Center purchase creation response: %w", err)
	}
	return created.ID, nil
}

type participantsResponse struct {
	Participants []models.Participant `json:"participants"`
}

func (c *b2bClientImpl) ListParticipants(ctx context.Context, purchaseID string) ([]models.Participant, error) {
	participantsURL := fmt.Sprintf("%s/purchases/%s/participants", c.baseURL, purchaseID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, participantsURL, nil)
	if err != nil {
		return nil, err
	}
	req.SetBasicAuth(c.username, c.password)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call B2B-Center participants API for purchase %s: %w", purchaseID, err)
	}
	defer resp.Body.Close()
	metrics.ObserveUpstreamRequest("b2b", "list_participants", resp.StatusCode, time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &UpstreamError{System: "b2b", Operation: "list_participants", StatusCode: resp.StatusCode}
	}

	var listing participantsResponse
	if err := json.NewDecoder(resp.Body).Decode(&listing); err != nil {
		return nil, fmt.Errorf("failed to decode B2B-Center participants response for purchase %s: %w", purchaseID, err)
	}
	return listing.Participants, nil
}
