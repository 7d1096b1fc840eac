package builder

import "errors"

var (
	ErrNoInputs        = errors.New("no units or packages to check")
	ErrLoadFailed      = errors.New("failed to load declarations")
	ErrUnexpectedCheck = errors.New("check result differs from its expectation")
)
