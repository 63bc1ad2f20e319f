package scorecard

import "errors"

var (
	ErrNotDirector       = errors.New("person is not a director")
	ErrInvalidTrendRange = errors.New("trend range must cover 1 to 24 periods")
)
