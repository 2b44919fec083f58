package repository

import (
	"context"

	"github.com/clinicq/patient-queue/internal/domain"
)

// AttemptRepository is the audit log for notification deliveries.
// Write-mostly: the delivery worker records one row per settled send;
// staff can list recent rows for troubleshooting.
type AttemptRepository interface {
	Record(ctx context.Context, a *domain.NotificationAttempt) error
	ListRecent(ctx context.Context, limit int) ([]*domain.NotificationAttempt, error)
}
