package scraper

import "errors"

var (
	ErrSourceFetchFailed = errors.New("source fetch failed")
	ErrSourceUnavailable = errors.New("source unavailable")
	ErrInvalidProxy      = errors.New("invalid proxy format")
	ErrUnsupportedFormat = errors.New("unsupported source format")
)
