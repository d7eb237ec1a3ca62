package models

import "errors"

// Sentinel errors for every fatal input condition named in spec.md §7.
var (
	ErrSeriesTooShort         = errors.New("series too short: fewer bars than the configured minimum")
	ErrSeriesTooLong          = errors.New("series exceeds the configured maximum data points")
	ErrMalformedBar           = errors.New("malformed bar: violates low <= open,close <= high or has negative volume")
	ErrNonMonotonicTimestamps = errors.New("non-monotonic timestamps: bars must be strictly increasing")
	ErrUnknownConfigOption    = errors.New("unknown configuration option")
	ErrSensitivityOutOfRange  = errors.New("sensitivity must be within [0,1]")
	ErrCancelled              = errors.New("analysis cancelled")
)
