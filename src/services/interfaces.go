package services

import (
	"context"

	"github.com/username/purchasesync/backend/src/models"
)

// PyrusService reads purchase request tasks from the source system.
type PyrusService interface {
	// GetTask fetches a task by its Pyrus id.
	GetTask(ctx context.Context, taskID int) (*models.PyrusTask, error)
	// FindTaskByPurchaseID locates the task whose purchase-id custom field
	// equals the given B2B-Center purchase id (reverse lookup).
	FindTaskByPurchaseID(ctx context.Context, purchaseID string) (int, error)
}

// B2BService checks, creates and reads purchases in the target system.
type B2BService interface {
	Exists(ctx context.Context, purchaseID string) (bool, error)
	Create(ctx context.Context, req *models.CreatePurchaseRequest) (string, error)
	ListParticipants(ctx context.Context, purchaseID string) ([]models.Participant, error)
}

// SyncService is the synchronization orchestrator.
type SyncService interface {
	CreateOrReport(ctx context.Context, purchaseID string) (*models.SyncOutcome, error)
	ListParticipants(ctx context.Context, purchaseID string) ([]models.Participant, error)
}

// NotifyService alerts operators about failed synchronization runs.
type NotifyService interface {
	NotifySyncFailure(purchaseID string, cause error)
}
