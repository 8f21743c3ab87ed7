package cli

// SilentError wraps an error whose message the command has already printed.
// main skips printing it again but still exits non-zero.
type SilentError struct {
	Err error
}

// NewSilentError marks err as already reported to the user.
func NewSilentError(err error) *SilentError {
	return &SilentError{Err: err}
}

func (e *SilentError) Error() string {
	return e.Err.Error()
}

func (e *SilentError) Unwrap() error {
	return e.Err
}
