package models

import "fmt"

// InvalidArgumentError means caller-supplied input violates a precondition
// (empty address list, wrong-network address, malformed transaction id or
// hex). It is never worth retrying.
type InvalidArgumentError struct {
	Reason string
}

func (e *InvalidArgumentError) Error() string {
	return "invalid argument: " + e.Reason
}

// NewInvalidArgument builds an InvalidArgumentError from a format string.
func NewInvalidArgument(format string, args ...interface{}) *InvalidArgumentError {
	return &InvalidArgumentError{Reason: fmt.Sprintf(format, args...)}
}

// ProviderError means the provider answered with a non-2xx status or the
// transport failed. The raw status and body are kept so the caller can decide
// whether to retry; the client itself never retries.
type ProviderError struct {
	Provider   string
	StatusCode int
	Body       []byte
	Err        error
}

func (e *ProviderError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: request failed: %s", e.Provider, e.Err)
	}
	return fmt.Sprintf("%s: unexpected status code %d: %s", e.Provider, e.StatusCode, e.Body)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// MalformedResponseError means the provider answered 2xx but the payload
// could not be parsed as the expected structure. Kept distinct from
// ProviderError so callers can tell "the provider is broken" apart from
// "the provider rejected my request".
type MalformedResponseError struct {
	Provider string
	Err      error
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("%s: malformed response: %s", e.Provider, e.Err)
}

func (e *MalformedResponseError) Unwrap() error {
	return e.Err
}
