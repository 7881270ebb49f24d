package services

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/username/purchasesync/backend/src/logger"
	"github.com/username/purchasesync/backend/src/metrics"
	"github.com/username/purchasesync/backend/src/model"
	"github.com/username/purchasesync/backend/src/models"
)

const (
	// inflightTTL bounds how long a crashed run can hold the latch.
	inflightTTL = 30 * time.Second

	participantsCacheTTL = 5 * time.Minute
)

// syncServiceImpl orchestrates the idempotent create-or-report flow between
// Pyrus and B2B-Center.
type syncServiceImpl struct {
	pyrus             PyrusService
	b2b               B2BService
	db                *sql.DB
	notifier          NotifyService
	inflight          *cache.Cache
	participantsCache *cache.Cache
}

func NewSyncService(pyrus PyrusService, b2b B2BService, db *sql.DB, notifier NotifyService, participantsCache *cache.Cache) SyncService {
	return &syncServiceImpl{
		pyrus:             pyrus,
		b2b:               b2b,
		db:                db,
		notifier:          notifier,
		inflight:          cache.New(inflightTTL, time.Minute),
		participantsCache: participantsCache,
	}
}

// CreateOrReport guarantees that repeated invocation for the same purchase id
// never creates a second purchase. The guards, in order: an in-process
// single-flight latch (narrows concurrent redelivery), the local sync
// journal, the remote existence check, and B2B-Center's uniqueness conflict
// on create. The remaining check-then-act window between the existence check
// and the create is closed by that last conflict mapping.
func (s *syncServiceImpl) CreateOrReport(ctx context.Context, purchaseID string) (*models.SyncOutcome, error) {
	if err := s.inflight.Add("sync:"+purchaseID, struct{}{}, cache.DefaultExpiration); err != nil {
		logger.L.Warn("Concurrent trigger for purchase still in flight", "purchaseID", purchaseID)
		return nil, ErrSyncInProgress
	}
	defer s.inflight.Delete("sync:" + purchaseID)

	// Journal first: a purchase this service already created is reported
	// without any remote call.
	entry, err := model.FindSyncByPurchaseID(s.db, purchaseID)
	if err != nil {
		logger.L.Error("Sync journal lookup failed", "purchaseID", purchaseID, "error", err)
	} else if entry != nil {
		logger.L.Info("Purchase found in sync journal", "purchaseID", purchaseID, "b2bPurchaseID", entry.B2BPurchaseID)
		metrics.JournalHits.Inc()
		metrics.SyncRuns.WithLabelValues(models.SyncStatusAlreadyExists).Inc()
		return &models.SyncOutcome{
			Status:        models.SyncStatusAlreadyExists,
			PurchaseID:    purchaseID,
			B2BPurchaseID: entry.B2BPurchaseID,
		}, nil
	}

	exists, err := s.b2b.Exists(ctx, purchaseID)
	if err != nil {
		metrics.SyncRuns.WithLabelValues("failed").Inc()
		return nil, err
	}
	if exists {
		logger.L.Info("Purchase already exists in B2B-Center", "purchaseID", purchaseID)
		metrics.SyncRuns.WithLabelValues(models.SyncStatusAlreadyExists).Inc()
		return &models.SyncOutcome{
			Status:     models.SyncStatusAlreadyExists,
			PurchaseID: purchaseID,
		}, nil
	}

	taskID, err := s.pyrus.FindTaskByPurchaseID(ctx, purchaseID)
	if err != nil {
		if errors.Is(err, ErrTaskNotFound) {
			metrics.SyncRuns.WithLabelValues("not_found").Inc()
		} else {
			metrics.SyncRuns.WithLabelValues("failed").Inc()
		}
		return nil, err
	}

	task, err := s.pyrus.GetTask(ctx, taskID)
	if err != nil {
		metrics.SyncRuns.WithLabelValues("failed").Inc()
		return nil, err
	}

	payload := &models.CreatePurchaseRequest{
		Name:      task.Subject,
		B2BID:     task.B2BID,
		Lots:      ExtractLots(task),
		Documents: ExtractDocuments(task),
		Deadline:  task.Deadline,
		Status:    models.PurchaseStatusActive,
	}
	logger.L.Info("Creating purchase in B2B-Center",
		"purchaseID", purchaseID,
		"taskID", taskID,
		"lots", len(payload.Lots),
		"documents", len(payload.Documents))

	b2bPurchaseID, err := s.b2b.Create(ctx, payload)
	if err != nil {
		if errors.Is(err, ErrAlreadyExists) {
			// A concurrent run won the race; report idempotently.
			logger.L.Info("B2B-Center reported conflict on create, treating as already existing", "purchaseID", purchaseID)
			metrics.SyncRuns.WithLabelValues(models.SyncStatusAlreadyExists).Inc()
			return &models.SyncOutcome{
				Status:     models.SyncStatusAlreadyExists,
				PurchaseID: purchaseID,
			}, nil
		}
		metrics.SyncRuns.WithLabelValues("rejected").Inc()
		s.notifier.NotifySyncFailure(purchaseID, err)
		return nil, err
	}

	inserted, err := model.RecordSync(s.db, &model.SyncJournalEntry{
		PurchaseID:    purchaseID,
		B2BPurchaseID: b2bPurchaseID,
		TaskID:        taskID,
		Outcome:       models.SyncStatusCreated,
	})
	if err != nil {
		// The purchase was created; a journal failure must not fail the run.
		logger.L.Error("Failed to record sync in journal", "purchaseID", purchaseID, "error", err)
	} else if !inserted {
		logger.L.Warn("Sync journal already had an entry for purchase", "purchaseID", purchaseID)
	}

	logger.L.Info("Purchase created in B2B-Center", "purchaseID", purchaseID, "b2bPurchaseID", b2bPurchaseID)
	metrics.SyncRuns.WithLabelValues(models.SyncStatusCreated).Inc()
	return &models.SyncOutcome{
		Status:        models.SyncStatusCreated,
		PurchaseID:    purchaseID,
		B2BPurchaseID: b2bPurchaseID,
	}, nil
}

// ListParticipants reads the purchase's counterparties, with a short TTL
// cache in front of B2B-Center.
func (s *syncServiceImpl) ListParticipants(ctx context.Context, purchaseID string) ([]models.Participant, error) {
	cacheKey := "participants:" + purchaseID
	if s.participantsCache != nil {
		if cached, found := s.participantsCache.Get(cacheKey); found {
			return cached.([]models.Participant), nil
		}
	}

	participants, err := s.b2b.ListParticipants(ctx, purchaseID)
	if err != nil {
		return nil, err
	}

	if s.participantsCache != nil {
		s.participantsCache.Set(cacheKey, participants, participantsCacheTTL)
	}
	return participants, nil
}
