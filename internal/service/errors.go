package service

import "errors"

var (
	ErrNotFound               = errors.New("not found")
	ErrPermissionDenied       = errors.New("permission denied")
	ErrValidation             = errors.New("validation error")
	ErrInvalidStatus          = errors.New("invalid status value")
	ErrInvalidStateTransition = errors.New("invalid state transition")
	ErrAlreadyApproved        = errors.New("already approved")
	ErrMissingReason          = errors.New("rejection reason is required")
	ErrPreconditionFailed     = errors.New("precondition failed")
	ErrAmountMismatch         = errors.New("amount mismatch")
	ErrDateOrderViolation     = errors.New("date order violation")
	ErrEvidenceRequired       = errors.New("evidence artifact is required")
	ErrImmutableRecord        = errors.New("record is immutable")
)

// ErrorCode returns the stable machine-readable code for an error; callers
// branch on the code, never on the message.
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrValidation):
		return "VALIDATION_ERROR"
	case errors.Is(err, ErrInvalidStatus):
		return "INVALID_STATUS"
	case errors.Is(err, ErrMissingReason):
		return "MISSING_REASON"
	case errors.Is(err, ErrInvalidStateTransition):
		return "INVALID_STATE_TRANSITION"
	case errors.Is(err, ErrAlreadyApproved):
		return "ALREADY_APPROVED"
	case errors.Is(err, ErrPreconditionFailed):
		return "PRECONDITION_FAILED"
	case errors.Is(err, ErrAmountMismatch):
		return "AMOUNT_MISMATCH"
	case errors.Is(err, ErrDateOrderViolation):
		return "DATE_ORDER_VIOLATION"
	case errors.Is(err, ErrEvidenceRequired):
		return "EVIDENCE_REQUIRED"
	case errors.Is(err, ErrImmutableRecord):
		return "IMMUTABLE_RECORD"
	case errors.Is(err, ErrNotFound):
		return "NOT_FOUND"
	case errors.Is(err, ErrPermissionDenied):
		return "PERMISSION_DENIED"
	default:
		return "INTERNAL_ERROR"
	}
}
