package game

import "errors"

type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindValidation
	KindAuthorization
	KindCapacity
	KindDependency
	KindInvariant
)

func (k ErrorKind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindAuthorization:
		return "authorization"
	case KindCapacity:
		return "capacity"
	case KindDependency:
		return "dependency"
	case KindInvariant:
		return "invariant"
	default:
		return "unknown"
	}
}

// Error is the tagged error returned by every engine operation.
type Error struct {
	Kind ErrorKind
	code string
}

func (e *Error) Error() string {
	return e.code
}

func newError(kind ErrorKind, code string) *Error {
	return &Error{Kind: kind, code: code}
}

// KindOf reports the taxonomy bucket of err, KindUnknown for foreign errors.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// Validation
var (
	ErrInvalidRoomConfig   = newError(KindValidation, "invalid-room-config")
	ErrAlreadyInRoom       = newError(KindValidation, "already-in-room")
	ErrWordTooShort        = newError(KindValidation, "word-too-short")
	ErrWrongStartingLetter = newError(KindValidation, "wrong-starting-letter")
	ErrDuplicateWord       = newError(KindValidation, "duplicate-word")
	ErrUndefinedWord       = newError(KindValidation, "undefined-word")
)

// Authorization
var (
	ErrWrongPassword  = newError(KindAuthorization, "wrong-password")
	ErrNotRoomOwner   = newError(KindAuthorization, "not-room-owner")
	ErrNotAllReady    = newError(KindAuthorization, "not-all-ready")
	ErrNotTurnHolder  = newError(KindAuthorization, "not-turn-holder")
	ErrNotEnoughUsers = newError(KindAuthorization, "not-enough-users")
)

// Capacity
var (
	ErrRoomFull             = newError(KindCapacity, "room-full")
	ErrRoomCapacityExceeded = newError(KindCapacity, "room-capacity-exceeded")
)

// Dependency
var (
	ErrRoundWordUnavailable = newError(KindDependency, "round-word-unavailable")
)

// Invariant
var (
	ErrUserNotOnline       = newError(KindInvariant, "user-not-online")
	ErrNotInRoom           = newError(KindInvariant, "not-in-room")
	ErrRoomNotFound        = newError(KindInvariant, "room-not-found")
	ErrRoomDestroyed       = newError(KindInvariant, "room-destroyed")
	ErrInvalidState        = newError(KindInvariant, "invalid-state")
	ErrNotParticipant      = newError(KindInvariant, "not-participant")
	ErrWordCheckInProgress = newError(KindInvariant, "word-check-in-progress")
	ErrTurnChanged         = newError(KindInvariant, "turn-changed")
	ErrTimeExpired         = newError(KindInvariant, "time-expired")
)
