package scoring

import (
	"errors"
	"fmt"
)

var (
	ErrMalformedKPI     = errors.New("malformed kpi")
	ErrInvalidPeriodKey = errors.New("invalid period key")
)

// MalformedKPIError reports an active KPI whose weight cannot be used. It is
// a data-integrity fault upstream, so the score is not computed.
type MalformedKPIError struct {
	KPIID  string
	Weight int
}

func (e *MalformedKPIError) Error() string {
	return fmt.Sprintf("kpi %s has invalid weight %d", e.KPIID, e.Weight)
}

func (e *MalformedKPIError) Is(target error) bool {
	return target == ErrMalformedKPI
}
