package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/username/purchasesync/backend/src/logger"
	"github.com/username/purchasesync/backend/src/metrics"
	"github.com/username/purchasesync/backend/src/models"
	"github.com/username/purchasesync/backend/src/security"
	"github.com/username/purchasesync/backend/src/services"
)

const signatureHeader = "X-Pyrus-Signature"

type SyncHandler struct {
	syncService  services.SyncService
	verifier     *security.SignatureVerifier
	maxBodyBytes int64
}

func NewSyncHandler(syncService services.SyncService, verifier *security.SignatureVerifier, maxBodyBytes int64) *SyncHandler {
	return &SyncHandler{
		syncService:  syncService,
		verifier:     verifier,
		maxBodyBytes: maxBodyBytes,
	}
}

// HandleCreateB2B serves POST /create-b2b/{purchaseId}. The body is read
// raw before any parsing: the signature covers the exact bytes on the wire.
func (h *SyncHandler) HandleCreateB2B(w http.ResponseWriter, r *http.Request) {
	purchaseID := r.PathValue("purchaseId")
	if purchaseID == "" {
		sendJSONError(w, "purchase id missing in path", http.StatusBadRequest)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxBodyBytes)
	rawBody, err := io.ReadAll(r.Body)
	if err != nil {
		logger.L.Warn("Failed to read webhook body", "purchaseID", purchaseID, "error", err)
		sendJSONError(w, "failed to read request body", http.StatusBadRequest)
		return
	}

	if !h.verifier.VerifyBody(rawBody, r.Header.Get(signatureHeader)) {
		logger.L.Warn("Webhook signature verification failed", "purchaseID", purchaseID, "remoteAddr", r.RemoteAddr)
		metrics.SignatureRejections.Inc()
		sendJSONError(w, "invalid webhook signature", http.StatusUnauthorized)
		return
	}

	outcome, err := h.syncService.CreateOrReport(r.Context(), purchaseID)
	if err != nil {
		h.writeSyncError(w, purchaseID, err)
		return
	}

	status := http.StatusOK
	if outcome.Status == models.SyncStatusCreated {
		status = http.StatusCreated
	}
	writeJSON(w, status, outcome)
}

// HandleLoadParticipants serves GET /load-participants/{purchaseId}. The
// trigger carries no body, so the signature is computed over the canonical
// query string.
func (h *SyncHandler) HandleLoadParticipants(w http.ResponseWriter, r *http.Request) {
	purchaseID := r.PathValue("purchaseId")
	if purchaseID == "" {
		sendJSONError(w, "purchase id missing in path", http.StatusBadRequest)
		return
	}

	if !h.verifier.VerifyQuery(r.URL.Query(), r.Header.Get(signatureHeader)) {
		logger.L.Warn("Webhook signature verification failed", "purchaseID", purchaseID, "remoteAddr", r.RemoteAddr)
		metrics.SignatureRejections.Inc()
		sendJSONError(w, "invalid webhook signature", http.StatusUnauthorized)
		return
	}

	participants, err := h.syncService.ListParticipants(r.Context(), purchaseID)
	if err != nil {
		h.writeSyncError(w, purchaseID, err)
		return
	}
	if participants == nil {
		participants = []models.Participant{} // Ensure an empty array is sent if no data
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":             "success",
		"purchase_id":        purchaseID,
		"participants_count": len(participants),
		"participants":       participants,
	})
}

// writeSyncError maps orchestrator errors onto the webhook response codes.
// Every upstream failure ends here as a structured JSON error; nothing
// propagates as an unhandled fault.
func (h *SyncHandler) writeSyncError(w http.ResponseWriter, purchaseID string, err error) {
	var upstreamErr *services.UpstreamError
	var creationErr *services.CreationRejectedError

	switch {
	case errors.Is(err, services.ErrTaskNotFound):
		logger.L.Warn("No Pyrus task for purchase", "purchaseID", purchaseID)
		sendJSONError(w, fmt.Sprintf("no source task found for purchase %s", purchaseID), http.StatusNotFound)
	case errors.Is(err, services.ErrSyncInProgress):
		logger.L.Warn("Rejecting trigger, sync already in progress", "purchaseID", purchaseID)
		sendJSONError(w, fmt.Sprintf("synchronization for purchase %s is already in progress", purchaseID), http.StatusInternalServerError)
	case errors.As(err, &creationErr):
		logger.L.Error("Purchase creation rejected by B2B-Center", "purchaseID", purchaseID, "status", creationErr.StatusCode, "body", creationErr.Body)
		sendJSONError(w, fmt.Sprintf("purchase creation rejected: %v", err), http.StatusInternalServerError)
	case errors.As(err, &upstreamErr):
		logger.L.Error("Upstream system unavailable", "purchaseID", purchaseID, "system", upstreamErr.System, "operation", upstreamErr.Operation, "status", upstreamErr.StatusCode)
		sendJSONError(w, fmt.Sprintf("upstream system unavailable: %v", err), http.StatusInternalServerError)
	default:
		logger.L.Error("Synchronization failed", "purchaseID", purchaseID, "error", err)
		sendJSONError(w, fmt.Sprintf("synchronization failed for purchase %s: %v", purchaseID, err), http.StatusInternalServerError)
	}
}
