package apiclient

import "fmt"

// APICallError reports an envelope that was absent, malformed, not OK, or
// carried the false sentinel as payload.
type APICallError struct {
	Msg string
}

func (e *APICallError) Error() string {
	return e.Msg
}

// TransportError reports a call that could not be completed.
type TransportError struct {
	Op  string
	URL string
	Err error
}

func (e *TransportError) Error() string {
	if e.URL == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
