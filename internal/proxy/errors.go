package proxy

import "errors"

var (
	ErrInvalidProxy      = errors.New("invalid proxy")
	ErrPoolEmpty         = errors.New("no proxies available")
	ErrNotFound          = errors.New("proxy not found")
	ErrPersistenceFailed = errors.New("persistence failed")
	ErrNoCandidates      = errors.New("no candidates fetched")
	ErrCyclePanicked     = errors.New("refresh cycle panicked")
)
