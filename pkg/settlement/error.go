package settlement

import "errors"

var (
	ErrSessionNotFound  = errors.New("settlement session not found")
	ErrSessionFinalized = errors.New("settlement session already finalized")
)
