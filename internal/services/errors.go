package services

import (
	"errors"

	"github.com/vectorprep/session-service/internal/locks"
)

// ===== SERVICE ERRORS =====

var (
	// Not found
	ErrAttemptNotFound  = errors.New("attempt not found")
	ErrQuestionNotFound = errors.New("question not found")
	ErrMockTestNotFound = errors.New("mock test not found")
	ErrLeadNotFound     = errors.New("lead not found")
	ErrReportNotFound   = errors.New("report not found")

	// Invalid state: the client must re-fetch current state and resync.
	ErrAttemptNotActive = errors.New("attempt is not in progress")
	ErrAttemptAbandoned = errors.New("attempt was abandoned")
	ErrQuestionMismatch = errors.New("submitted question is not the current question")
	ErrUnknownQuestion  = errors.New("question is not part of this attempt")
	ErrWrongAttemptKind = errors.New("operation not valid for this attempt kind")
	ErrReportNotReady   = errors.New("attempt has not been completed")

	// Expired: distinct from invalid state so the client knows to invoke
	// force-completion instead of retrying the same call.
	ErrAttemptExpired = errors.New("attempt time budget is exhausted")

	// Supply shortage, surfaced at session start only.
	ErrNoQuestionsAvailable = errors.New("no questions available for selection")

	// Integrity fault: unrecoverable for this attempt, surfaced generically.
	ErrAttemptCorrupted = errors.New("attempt record is inconsistent")

	ErrValidationFailed = errors.New("validation failed")
)

// ===== ERROR PREDICATES =====

func IsNotFound(err error) bool {
	return errors.Is(err, ErrAttemptNotFound) ||
		errors.Is(err, ErrQuestionNotFound) ||
		errors.Is(err, ErrMockTestNotFound) ||
		errors.Is(err, ErrLeadNotFound) ||
		errors.Is(err, ErrReportNotFound)
}

func IsInvalidState(err error) bool {
	return errors.Is(err, ErrAttemptNotActive) ||
		errors.Is(err, ErrAttemptAbandoned) ||
		errors.Is(err, ErrQuestionMismatch) ||
		errors.Is(err, ErrUnknownQuestion) ||
		errors.Is(err, ErrWrongAttemptKind) ||
		errors.Is(err, ErrReportNotReady)
}

func IsExpired(err error) bool {
	return errors.Is(err, ErrAttemptExpired)
}

func IsSupplyShortage(err error) bool {
	return errors.Is(err, ErrNoQuestionsAvailable)
}

func IsIntegrityFault(err error) bool {
	return errors.Is(err, ErrAttemptCorrupted)
}

// IsBusy reports a bounded lock-acquisition timeout; the whole request is
// safe to retry.
func IsBusy(err error) bool {
	return errors.Is(err, locks.ErrBusy)
}

func IsValidation(err error) bool {
	return errors.Is(err, ErrValidationFailed)
}
