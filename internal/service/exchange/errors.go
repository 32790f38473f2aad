package exchange

import "fmt"

// TransportError reports a network-level failure: DNS, refused connection,
// timeout. The request never produced an exchange response.
type TransportError struct {
	Method string
	Path   string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s transport failed: %v", e.Method, e.Path, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// APIError reports a non-200 exchange response, carrying the HTTP status and
// the decoded error body when one was present.
type APIError struct {
	Method string
	Path   string
	Status int
	Code   int
	Msg    string
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s %s rejected: status=%d code=%d msg=%s", e.Method, e.Path, e.Status, e.Code, e.Msg)
}
