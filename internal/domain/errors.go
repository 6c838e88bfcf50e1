package domain

import "errors"

var (
	// ErrSourceUnavailable marks a source file that is missing, unreadable or has no data rows.
	ErrSourceUnavailable = errors.New("source unavailable")

	// ErrSchemaMismatch marks a source whose column layout matches none of the known shapes.
	ErrSchemaMismatch = errors.New("schema mismatch")

	// ErrBaseSourceMissing is the only fatal condition: the elderly population
	// series is absent, so no district record can be built.
	ErrBaseSourceMissing = errors.New("elderly population series missing")
)
