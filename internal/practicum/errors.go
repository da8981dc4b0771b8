package practicum

import (
	"errors"
	"fmt"
)

// Kind classifies a failure so callers can branch on it without string matching.
type Kind int

const (
	KindUnknown Kind = iota
	// KindConnection: transport failure (DNS, timeout, refused connection).
	KindConnection
	// KindStatusCode: the API answered with a non-200 status.
	KindStatusCode
	// KindResponse: the body is not valid JSON.
	KindResponse
	// KindShape: the JSON is valid but not shaped like a status response.
	KindShape
	// KindStatus: a homework record has a missing or unknown status.
	KindStatus
	// KindToken: a required credential is missing. Only raised at startup.
	KindToken
)

func (k Kind) String() string {
	switch k {
	case KindConnection:
		return "connection"
	case KindStatusCode:
		return "status_code"
	case KindResponse:
		return "response"
	case KindShape:
		return "shape"
	case KindStatus:
		return "status"
	case KindToken:
		return "token"
	default:
		return "unknown"
	}
}

var (
	ErrInvalidJSON     = errors.New("response body is not valid json")
	ErrNotObject       = errors.New("response is not an object")
	ErrNoHomeworks     = errors.New(`response has no "homeworks" key`)
	ErrHomeworksNotArr = errors.New(`"homeworks" is not a list`)
	ErrMissingStatus   = errors.New(`homework has no "status" key`)
	ErrUnknownStatus   = errors.New("unknown homework status")
)

// Error is the tagged error returned by this package.
type Error struct {
	Kind Kind
	Op   string
	// StatusCode is set for KindStatusCode.
	StatusCode int
	Err        error
}

func (e *Error) Error() string {
	switch {
	case e.Kind == KindStatusCode && e.Err == nil:
		return fmt.Sprintf("%s: unexpected http status %d", e.Op, e.StatusCode)
	case e.Kind == KindStatusCode:
		return fmt.Sprintf("%s: unexpected http status %d: %v", e.Op, e.StatusCode, e.Err)
	case e.Err == nil:
		return fmt.Sprintf("%s: %s error", e.Op, e.Kind)
	default:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
}

func (e *Error) Unwrap() error { return e.Err }

func newError(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// KindOf returns the Kind carried by err, or KindUnknown.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// IsKind reports whether err carries the given Kind.
func IsKind(err error, k Kind) bool {
	return err != nil && KindOf(err) == k
}

// TokenError builds the startup error for missing credentials.
func TokenError(missing []string) error {
	return newError(KindToken, "check tokens", fmt.Errorf("missing required variables: %v", missing))
}
