package services

import (
	"log/slog"
	"time"

	"github.com/vectorprep/session-service/internal/cache"
	"github.com/vectorprep/session-service/internal/events"
	"github.com/vectorprep/session-service/internal/locks"
	"github.com/vectorprep/session-service/internal/repositories"
	"github.com/vectorprep/session-service/internal/validator"
)

// defaultLockWait bounds how long a request may wait for a contended attempt.
// Contention only happens on client double-submits, so fail fast.
const defaultLockWait = 2 * time.Second

type serviceManager struct {
	session SessionService
	attempt AttemptService
	report  ReportService
}

func NewServiceManager(
	repo repositories.Repository,
	cacheService cache.CacheService,
	publisher events.EventPublisher,
	logger *slog.Logger,
	v *validator.Validator,
	lockWait time.Duration,
) ServiceManager {
	if lockWait <= 0 {
		lockWait = defaultLockWait
	}
	keyedLocks := locks.NewKeyedMutex(lockWait)
	return &serviceManager{
		session: NewSessionService(repo, cacheService, logger, v),
		attempt: NewAttemptService(repo, keyedLocks, publisher, logger, v),
		report:  NewReportService(repo, cacheService, logger),
	}
}

func (m *serviceManager) Session() SessionService { return m.session }
func (m *serviceManager) Attempt() AttemptService { return m.attempt }
func (m *serviceManager) Report() ReportService   { return m.report }
