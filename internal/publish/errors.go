package publish

import "fmt"

type Reason string

const (
	ReasonAuth   Reason = "auth"
	ReasonUpload Reason = "upload"
)

// Error classifies a publication failure. Auth failures happen before any
// byte is written; upload failures may leave a visible partial publication
// (revision address written, pointer not), which is accepted and safe to
// retry.
type Error struct {
	Reason Reason
	Key    string
	Err    error
}

func (e *Error) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("publish %s failed (%s): %v", e.Key, e.Reason, e.Err)
	}
	return fmt.Sprintf("publish failed (%s): %v", e.Reason, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}
