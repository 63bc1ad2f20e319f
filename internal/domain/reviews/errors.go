package reviews

import "errors"

var (
	ErrKPIRemoved        = errors.New("kpi has been removed")
	ErrUnknownKPI        = errors.New("unknown kpi")
	ErrInvalidSubmission = errors.New("invalid review submission")
	ErrEmptyBatch        = errors.New("review batch is empty")
)
