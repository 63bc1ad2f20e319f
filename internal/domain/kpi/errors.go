package kpi

import "errors"

var (
	ErrNotFound       = errors.New("kpi not found")
	ErrInvalidWeight  = errors.New("kpi weight must be between 1 and 100")
	ErrNameRequired   = errors.New("kpi name is required")
	ErrNameTooLong    = errors.New("kpi name is too long")
	ErrAlreadyRemoved = errors.New("kpi already removed")
	ErrNotRemoved     = errors.New("kpi is not removed")
)
