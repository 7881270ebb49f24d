package services

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/username/purchasesync/backend/src/database"
	"github.com/username/purchasesync/backend/src/model"
	"github.com/username/purchasesync/backend/src/models"
	_ "modernc.org/sqlite"
)

type mockPyrusService struct {
	GetTaskFunc              func(ctx context.Context, taskID int) (*models.PyrusTask, error)
	FindTaskByPurchaseIDFunc func(ctx context.Context, purchaseID string) (int, error)
	findCalls                int
}

func (m *mockPyrusService) GetTask(ctx context.Context, taskID int) (*models.PyrusTask, error) {
	if m.GetTaskFunc != nil {
		return m.GetTaskFunc(ctx, taskID)
	}
	return nil, errors.New("unexpected GetTask call")
}

func (m *mockPyrusService) FindTaskByPurchaseID(ctx context.Context, purchaseID string) (int, error) {
	m.findCalls++
	if m.FindTaskByPurchaseIDFunc != nil {
		return m.FindTaskByPurchaseIDFunc(ctx, purchaseID)
	}
	return 0, errors.New("unexpected FindTaskByPurchaseID call")
}

type mockB2BService struct {
	ExistsFunc           func(ctx context.Context, purchaseID string) (bool, error)
	CreateFunc           func(ctx context.Context, req *models.CreatePurchaseRequest) (string, error)
	ListParticipantsFunc func(ctx context.Context, purchaseID string) ([]models.Participant, error)
	existsCalls          int
	createCalls          int
	listCalls            int
}

func (m *mockB2BService) Exists(ctx context.Context, purchaseID string) (bool, error) {
	m.existsCalls++
	if m.ExistsFunc != nil {
		return m.ExistsFunc(ctx, purchaseID)
	}
	return false, nil
}

func (m *mockB2BService) Create(ctx context.Context, req *models.CreatePurchaseRequest) (string, error) {
	m.createCalls++
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, req)
	}
	return "", errors.New("unexpected Create call")
}

func (m *mockB2BService) ListParticipants(ctx context.Context, purchaseID string) ([]models.Participant, error) {
	m.listCalls++
	if m.ListParticipantsFunc != nil {
		return m.ListParticipantsFunc(ctx, purchaseID)
	}
	return nil, nil
}

type mockNotifier struct {
	calls int
}

func (m *mockNotifier) NotifySyncFailure(purchaseID string, cause error) {
	m.calls++
}

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("failed to open in-memory database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := database.EnsureSchema(db); err != nil {
		t.Fatalf("failed to ensure schema: %v", err)
	}
	return db
}

func newTestSyncService(t *testing.T, pyrus *mockPyrusService, b2b *mockB2BService) (SyncService, *sql.DB, *mockNotifier) {
	t.Helper()
	db := newTestDB(t)
	notifier := &mockNotifier{}
	svc := NewSyncService(pyrus, b2b, db, notifier, cache.New(time.Minute, time.Minute))
	return svc, db, notifier
}

func officeChairsTask() *models.PyrusTask {
	qty := 12.0
	price := 149.0
	pdf := "application/pdf"
	deadline := "2024-12-01"
	return &models.PyrusTask{
		ID:      174,
		Subject: "Office chairs",
		Fields: []models.TaskField{
			{ID: "lot_chairs", Value: "Chair model A", Quantity: &qty, Price: &price},
			{ID: "comment", Value: "urgent"},
		},
		Attachments: []models.Attachment{
			{Name: "spec.pdf", URL: "https://files/spec.pdf", Type: &pdf},
			{Name: "floorplan.png", URL: "https://files/floorplan.png"},
		},
		Deadline: &deadline,
	}
}

func TestCreateOrReportAlreadyExistsIsIdempotent(t *testing.T) {
	pyrus := &mockPyrusService{}
	b2b := &mockB2BService{
		ExistsFunc: func(ctx context.Context, purchaseID string) (bool, error) { return true, nil },
	}
	svc, _, _ := newTestSyncService(t, pyrus, b2b)

	for i := 0; i < 2; i++ {
		outcome, err := svc.CreateOrReport(context.Background(), "P-100")
		if err != nil {
			t.Fatalf("CreateOrReport() error = %v", err)
		}
		if outcome.Status != models.SyncStatusAlreadyExists {
			t.Errorf("outcome status = %q, want %q", outcome.Status, models.SyncStatusAlreadyExists)
		}
	}
	if b2b.createCalls != 0 {
		t.Errorf("create was called %d times, want 0", b2b.createCalls)
	}
}

func TestCreateOrReportJournalHitSkipsRemoteCalls(t *testing.T) {
	pyrus := &mockPyrusService{}
	b2b := &mockB2BService{}
	svc, db, _ := newTestSyncService(t, pyrus, b2b)

	inserted, err := model.RecordSync(db, &model.SyncJournalEntry{
		PurchaseID:    "P-100",
		B2BPurchaseID: "B2B-900",
		TaskID:        174,
		Outcome:       models.SyncStatusCreated,
	})
	if err != nil || !inserted {
		t.Fatalf("failed to seed journal: inserted=%v err=%v", inserted, err)
	}

	outcome, err := svc.CreateOrReport(context.Background(), "P-100")
	if err != nil {
		t.Fatalf("CreateOrReport() error = %v", err)
	}
	if outcome.Status != models.SyncStatusAlreadyExists || outcome.B2BPurchaseID != "B2B-900" {
		t.Errorf("unexpected outcome %+v", outcome)
	}
	if b2b.existsCalls != 0 || b2b.createCalls != 0 || pyrus.findCalls != 0 {
		t.Errorf("journal hit must not touch remote systems: exists=%d create=%d find=%d",
			b2b.existsCalls, b2b.createCalls, pyrus.findCalls)
	}
}

func TestCreateOrReportCreatesPurchase(t *testing.T) {
	pyrus := &mockPyrusService{
		FindTaskByPurchaseIDFunc: func(ctx context.Context, purchaseID string) (int, error) {
			if purchaseID != "P-100" {
				t.Errorf("unexpected purchase id %q", purchaseID)
			}
			return 174, nil
		},
		GetTaskFunc: func(ctx context.Context, taskID int) (*models.PyrusTask, error) {
			if taskID != 174 {
				t.Errorf("unexpected task id %d", taskID)
			}
			return officeChairsTask(), nil
		},
	}

	var created *models.CreatePurchaseRequest
	b2b := &mockB2BService{
		ExistsFunc: func(ctx context.Context, purchaseID string) (bool, error) { return false, nil },
		CreateFunc: func(ctx context.Context, req *models.CreatePurchaseRequest) (string, error) {
			created = req
			return "B2B-900", nil
		},
	}
	svc, db, _ := newTestSyncService(t, pyrus, b2b)

	outcome, err := svc.CreateOrReport(context.Background(), "P-100")
	if err != nil {
		t.Fatalf("CreateOrReport() error = %v", err)
	}

	if outcome.Status != models.SyncStatusCreated || outcome.B2BPurchaseID != "B2B-900" {
		t.Errorf("unexpected outcome %+v", outcome)
	}
	if b2b.createCalls != 1 {
		t.Fatalf("create was called %d times, want 1", b2b.createCalls)
	}
	if created.Name != "Office chairs" {
		t.Errorf("payload name = %q, want %q", created.Name, "Office chairs")
	}
	if len(created.Lots) != 1 || created.Lots[0].Name != "Chair model A" {
		t.Errorf("payload lots = %+v, want exactly the one lot field", created.Lots)
	}
	if len(created.Documents) != 2 {
		t.Errorf("payload documents = %+v, want both attachments", created.Documents)
	}
	if created.Deadline == nil || *created.Deadline != "2024-12-01" {
		t.Errorf("payload deadline = %v, want 2024-12-01", created.Deadline)
	}
	if created.Status != models.PurchaseStatusActive {
		t.Errorf("payload status = %q, want %q", created.Status, models.PurchaseStatusActive)
	}

	entry, err := model.FindSyncByPurchaseID(db, "P-100")
	if err != nil || entry == nil {
		t.Fatalf("journal entry missing after create: entry=%v err=%v", entry, err)
	}
	if entry.B2BPurchaseID != "B2B-900" || entry.TaskID != 174 {
		t.Errorf("unexpected journal entry %+v", entry)
	}
}

func TestCreateOrReportReverseLookupMiss(t *testing.T) {
	pyrus := &mockPyrusService{
		FindTaskByPurchaseIDFunc: func(ctx context.Context, purchaseID string) (int, error) {
			return 0, ErrTaskNotFound
		},
	}
	b2b := &mockB2BService{
		ExistsFunc: func(ctx context.Context, purchaseID string) (bool, error) { return false, nil },
	}
	svc, _, _ := newTestSyncService(t, pyrus, b2b)

	_, err := svc.CreateOrReport(context.Background(), "P-404")
	if !errors.Is(err, ErrTaskNotFound) {
		t.Fatalf("CreateOrReport() error = %v, want ErrTaskNotFound", err)
	}
	if b2b.createCalls != 0 {
		t.Errorf("create was called %d times, want 0", b2b.createCalls)
	}
}

func TestCreateOrReportConflictOnCreateIsAlreadyExists(t *testing.T) {
	pyrus := &mockPyrusService{
		FindTaskByPurchaseIDFunc: func(ctx context.Context, purchaseID string) (int, error) { return 174, nil },
		GetTaskFunc: func(ctx context.Context, taskID int) (*models.PyrusTask, error) {
			return officeChairsTask(), nil
		},
	}
	b2b := &mockB2BService{
		ExistsFunc: func(ctx context.Context, purchaseID string) (bool, error) { return false, nil },
		CreateFunc: func(ctx context.Context, req *models.CreatePurchaseRequest) (string, error) {
			return "", ErrAlreadyExists
		},
	}
	svc, _, notifier := newTestSyncService(t, pyrus, b2b)

	outcome, err := svc.CreateOrReport(context.Background(), "P-100")
	if err != nil {
		t.Fatalf("CreateOrReport() error = %v", err)
	}
	if outcome.Status != models.SyncStatusAlreadyExists {
		t.Errorf("outcome status = %q, want %q", outcome.Status, models.SyncStatusAlreadyExists)
	}
	if notifier.calls != 0 {
		t.Errorf("conflict must not raise an alert, got %d alerts", notifier.calls)
	}
}

func TestCreateOrReportRejectedCreateAlerts(t *testing.T) {
	pyrus := &mockPyrusService{
		FindTaskByPurchaseIDFunc: func(ctx context.Context, purchaseID string) (int, error) { return 174, nil },
		GetTaskFunc: func(ctx context.Context, taskID int) (*models.PyrusTask, error) {
			return officeChairsTask(), nil
		},
	}
	b2b := &mockB2BService{
		ExistsFunc: func(ctx context.Context, purchaseID string) (bool, error) { return false, nil },
		CreateFunc: func(ctx context.Context, req *models.CreatePurchaseRequest) (string, error) {
			return "", &CreationRejectedError{StatusCode: 400, Body: "bad payload"}
		},
	}
	svc, _, notifier := newTestSyncService(t, pyrus, b2b)

	_, err := svc.CreateOrReport(context.Background(), "P-100")
	var creationErr *CreationRejectedError
	if !errors.As(err, &creationErr) {
		t.Fatalf("CreateOrReport() error = %v, want *CreationRejectedError", err)
	}
	if notifier.calls != 1 {
		t.Errorf("rejected create must alert exactly once, got %d", notifier.calls)
	}
}

func TestListParticipantsCaches(t *testing.T) {
	participants := []models.Participant{
		{ID: "c1", Name: "Alpha Supplies"},
		{ID: "c2", Name: "Beta Trading"},
		{ID: "c3", Name: "Gamma Logistics"},
	}
	b2b := &mockB2BService{
		ListParticipantsFunc: func(ctx context.Context, purchaseID string) ([]models.Participant, error) {
			return participants, nil
		},
	}
	svc, _, _ := newTestSyncService(t, &mockPyrusService{}, b2b)

	for i := 0; i < 2; i++ {
		got, err := svc.ListParticipants(context.Background(), "P-100")
		if err != nil {
			t.Fatalf("ListParticipants() error = %v", err)
		}
		if len(got) != 3 || got[0].Name != "Alpha Supplies" || got[2].Name != "Gamma Logistics" {
			t.Errorf("unexpected participants %+v", got)
		}
	}
	if b2b.listCalls != 1 {
		t.Errorf("second listing must be served from cache, upstream called %d times", b2b.listCalls)
	}
}
