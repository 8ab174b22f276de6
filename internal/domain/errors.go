package domain

import "errors"

var (
	ErrNotFound         = errors.New("not found")
	ErrVenueUnavailable = errors.New("venue unavailable")
	ErrBadResponse      = errors.New("bad venue response")
	ErrNoData           = errors.New("no quote data available")
	ErrScanInProgress   = errors.New("scan already in progress")
	ErrScanCancelled    = errors.New("scan cancelled")
	ErrConfiguration    = errors.New("invalid configuration")
	ErrInvalidQuote     = errors.New("invalid quote")
	ErrLockHeld         = errors.New("lock already held")
)
