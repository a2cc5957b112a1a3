package transcription

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"syscall"
)

// Kind separates failures worth retrying from those that are not.
type Kind int

const (
	Permanent Kind = iota
	Transient
)

func (k Kind) String() string {
	if k == Transient {
		return "transient"
	}
	return "permanent"
}

var (
	// ErrCacheIO marks failures of the transcript cache storage.
	ErrCacheIO = errors.New("transcription cache i/o")
	// ErrEmptyAudio is returned for requests without samples.
	ErrEmptyAudio = errors.New("empty audio")
)

// Error is a classified transcription failure.
type Error struct {
	Kind     Kind
	Op       string
	Attempts int
	Err      error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString("transcription ")
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(" ")
	}
	fmt.Fprintf(&b, "failed (%s", e.Kind)
	if e.Attempts > 1 {
		fmt.Fprintf(&b, " after %d attempts", e.Attempts)
	}
	b.WriteString(")")
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// StatusError is a non-2xx HTTP response from a transcription endpoint.
type StatusError struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return "transcription endpoint returned " + e.Status
	}
	return fmt.Sprintf("transcription endpoint returned %s: %s", e.Status, e.Body)
}

// Classify wraps err in an *Error with its Kind. context.Canceled is returned
// unchanged since a cancelled call is never retried; nil stays nil.
func Classify(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	var classified *Error
	if errors.As(err, &classified) {
		return err
	}
	return &Error{Kind: kindOf(err), Op: op, Err: err}
}

// IsTransient reports whether err is worth retrying.
func IsTransient(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	var classified *Error
	if errors.As(err, &classified) {
		return classified.Kind == Transient
	}
	return kindOf(err) == Transient
}

func kindOf(err error) Kind {
	if errors.Is(err, ErrEmptyAudio) {
		return Permanent
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return Transient
	}
	var status *StatusError
	if errors.As(err, &status) {
		return statusKind(status.StatusCode)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return Transient
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return Transient
	}
	if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
		return Transient
	}
	message := strings.ToLower(err.Error())
	for _, token := range []string{
		"timeout",
		"deadline exceeded",
		"connection reset",
		"connection refused",
		"temporarily unavailable",
		"rate limit",
		"too many requests",
	} {
		if strings.Contains(message, token) {
			return Transient
		}
	}
	return Permanent
}

func statusKind(code int) Kind {
	switch {
	case code == http.StatusRequestTimeout,
		code == http.StatusTooEarly,
		code == http.StatusTooManyRequests,
		code >= 500:
		return Transient
	default:
		return Permanent
	}
}
