package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/username/purchasesync/backend/src/config"
	"github.com/username/purchasesync/backend/src/logger"
	"github.com/username/purchasesync/backend/src/metrics"
	"github.com/username/purchasesync/backend/src/models"
)

// purchaseIDField is the name of the Pyrus custom field that carries the
// B2B-Center purchase id.
const purchaseIDField = "purchase_id"

// lotFieldMarker tags the task fields that describe lots.
const lotFieldMarker = "lot"

// pyrusClientImpl implements PyrusService against the Pyrus REST API
// (bearer-token auth).
type pyrusClientImpl struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	formID     string
}

func NewPyrusClient(cfg *config.AppConfig) PyrusService {
	return &pyrusClientImpl{
		httpClient: &http.Client{Timeout: cfg.HTTPClientTimeout},
		baseURL:    strings.TrimRight(cfg.PyrusBaseURL, "/"),
		apiKey:     cfg.PyrusAPIKey,
		formID:     cfg.PyrusFormID,
	}
}

// taskEnvelope mirrors the {"task": {...}} wrapper Pyrus puts around a task.
type taskEnvelope struct {
	Task models.PyrusTask `json:"task"`
}

func (c *pyrusClientImpl) GetTask(ctx context.Context, taskID int) (*models.PyrusTask, error) {
	taskURL := fmt.Sprintf("%s/tasks/%d", c.baseURL, taskID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, taskURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call Pyrus task API for task %d: %w", taskID, err)
	}
	defer resp.Body.Close()
	metrics.ObserveUpstreamRequest("pyrus", "get_task", resp.StatusCode, time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &UpstreamError{System: "pyrus", Operation: "get_task", StatusCode: resp.StatusCode}
	}

	var envelope taskEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("failed to decode Pyrus task response for task %d: %w", taskID, err)
	}
	return &envelope.Task, nil
}

// registerRequest filters the form register by a single field value.
type registerRequest struct {
	Filters []registerFilter `json:"filters"`
}

type registerFilter struct {
	FieldName string   `json:"field_name"`
	Operator  string   `json:"operator"`
	Values    []string `json:"values"`
}

type registerResponse struct {
	Tasks []struct {
		ID int `json:"id"`
	} `json:"tasks"`
}

func (c *pyrusClientImpl) FindTaskByPurchaseID(ctx context.Context, purchaseID string) (int, error) {
	registerURL := fmt.Sprintf("%s/forms/%s/register", c.baseURL, c.formID)
	payload := registerRequest{
		Filters: []registerFilter{{
			FieldName: purchaseIDField,
			Operator:  "equals",
			Values:    []string{purchaseID},
		}},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal register filter for purchase %s: %w", purchaseID, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, registerURL, bytes.NewReader(body))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("failed to call Pyrus register API for purchase %s: %w", purchaseID, err)
	}
	defer resp.Body.Close()
	metrics.ObserveUpstreamRequest("pyrus", "find_task", resp.StatusCode, time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return 0, &UpstreamError{System: "pyrus", Operation: "find_task", StatusCode: resp.StatusCode}
	}

	var register registerResponse
	if err := json.NewDecoder(resp.Body).Decode(&register); err != nil {
		return 0, fmt.Errorf("failed to decode Pyrus register response for purchase %s: %w", purchaseID, err)
	}

	switch len(register.Tasks) {
	case 0:
		return 0, ErrTaskNotFound
	case 1:
		return register.Tasks[0].ID, nil
	default:
		logger.L.Error("Reverse lookup matched multiple tasks", "purchaseID", purchaseID, "matches", len(register.Tasks))
		return 0, ErrAmbiguousPurchaseID
	}
}

// ExtractLots selects every task field whose id contains the lot marker.
// Field order is kept as returned by Pyrus; it determines lot order in the
// created purchase.
func ExtractLots(task *models.PyrusTask) []models.Lot {
	lots := make([]models.Lot, 0, len(task.Fields))
	for _, field := range task.Fields {
		if !strings.Contains(field.ID, lotFieldMarker) {
			continue
		}
		lots = append(lots, models.Lot{
			Name:     field.Value,
			Quantity: field.Quantity,
			Price:    field.Price,
		})
	}
	return lots
}

// ExtractDocuments maps task attachments 1:1, preserving order. A missing
// attachment type is allowed.
func ExtractDocuments(task *models.PyrusTask) []models.Document {
	documents := make([]models.Document, 0, len(task.Attachments))
	for _, attachment := range task.Attachments {
		documents = append(documents, models.Document{
			Name: attachment.Name,
			URL:  attachment.URL,
			Type: attachment.Type,
		})
	}
	return documents
}
