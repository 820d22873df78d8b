package errs

import (
	"errors"
	"fmt"
)

// Kind classifies a failure so callers can react without string matching
type Kind string

const (
	// KindAuthUnavailable means no credential exists at all; the user has to log in.
	KindAuthUnavailable Kind = "auth_unavailable"
	// KindReauthRequired means the refresh token is gone or rejected; the
	// interactive login flow has to be restarted.
	KindReauthRequired Kind = "reauth_required"
	// KindUnauthorized is the per-call 401 signal. The drive client consumes
	// it for its single refresh-and-retry; if it escapes, the retry already
	// happened and failed.
	KindUnauthorized Kind = "unauthorized"

	KindMalformedMessage       Kind = "malformed_message"
	KindRenderFailed           Kind = "render_failed"
	KindComposeFailed          Kind = "compose_failed"
	KindFolderResolutionFailed Kind = "folder_resolution_failed"
	KindBatchListingFailed     Kind = "batch_listing_failed"
	KindBatchInProgress        Kind = "batch_in_progress"
	// KindRemoteStore covers every other provider failure (network, quota,
	// not-found), carrying the provider status and body verbatim.
	KindRemoteStore Kind = "remote_store_error"
)

// Error is the error type used across the conversion pipeline
type Error struct {
	Kind    Kind
	Stage   string // pipeline stage that produced the failure, if any
	Status  int    // provider HTTP status, 0 when not applicable
	Message string
	Detail  string // provider-supplied diagnostics
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if e.Stage != "" {
		msg = e.Stage + ": " + msg
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// New creates an Error with a kind and message
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap creates an Error wrapping a cause
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// Remote creates a provider failure carrying the HTTP status and response body
func Remote(status int, message, detail string) *Error {
	kind := KindRemoteStore
	if status == 401 {
		kind = KindUnauthorized
	}
	return &Error{Kind: kind, Status: status, Message: message, Detail: detail}
}

// WithStage tags err with the pipeline stage it came from. An existing
// *Error keeps its kind and gains the stage; anything else becomes a
// remote-store error.
func WithStage(stage string, err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		if e.Stage == "" {
			e.Stage = stage
		}
		return e
	}
	return &Error{Kind: KindRemoteStore, Stage: stage, Message: err.Error(), Err: err}
}

// KindOf extracts the kind from err, or KindRemoteStore for plain errors
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindRemoteStore
}

// StageOf returns the pipeline stage err was tagged with, if any
func StageOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Stage
	}
	return ""
}

// DetailOf returns the diagnostic detail attached to err, if any
func DetailOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Detail
	}
	return ""
}
