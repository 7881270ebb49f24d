package services

import (
	"context"
	"fmt"
	"time"

	"github.com/mailgun/mailgun-go/v4"
	"github.com/username/purchasesync/backend/src/config"
	"github.com/username/purchasesync/backend/src/logger"
)

// NewNotifyService returns a Mailgun-backed notifier when alerting is fully
// configured, otherwise a mock that only logs.
func NewNotifyService(cfg *config.AppConfig) NotifyService {
	if cfg.MailgunDomain == "" || cfg.MailgunPrivateAPIKey == "" || cfg.AlertRecipientEmail == "" {
		logger.L.Info("Alerting not configured, sync failures will only be logged.")
		return &MockNotifyService{}
	}

	mg := mailgun.NewMailgun(cfg.MailgunDomain, cfg.MailgunPrivateAPIKey)
	logger.L.Info("Mailgun alerting initialized", "domain", cfg.MailgunDomain, "recipient", cfg.AlertRecipientEmail)
	return &MailgunNotifyService{
		mg:          mg,
		senderEmail: cfg.AlertSenderEmail,
		senderName:  cfg.AlertSenderName,
		recipient:   cfg.AlertRecipientEmail,
	}
}

type MailgunNotifyService struct {
	mg          mailgun.Mailgun
	senderEmail string
	senderName  string
	recipient   string
}

func (s *MailgunNotifyService) NotifySyncFailure(purchaseID string, cause error) {
	from := fmt.Sprintf("%s <%s>", s.senderName, s.senderEmail)
	subject := fmt.Sprintf("Purchase sync failed for %s", purchaseID)
	body := fmt.Sprintf(`Synchronization of purchase %s into B2B-Center failed.

Error: %v

The webhook sender will redeliver the trigger; check the logs if the failure persists.`, purchaseID, cause)

	message := s.mg.NewMessage(from, subject, body, s.recipient)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*20)
	defer cancel()
	resp, id, err := s.mg.Send(ctx, message)
	if err != nil {
		logger.L.Error("Failed to send sync failure alert via Mailgun", "error", err, "purchaseID", purchaseID, "mailgunResp", resp, "mailgunId", id)
		return
	}
	logger.L.Info("Sync failure alert sent via Mailgun", "purchaseID", purchaseID, "id", id)
}

// MockNotifyService is the fallback when Mailgun is not configured.
type MockNotifyService struct{}

func (s *MockNotifyService) NotifySyncFailure(purchaseID string, cause error) {
	logger.L.Warn("Sync failure (alerting disabled)", "purchaseID", purchaseID, "error", cause)
}
