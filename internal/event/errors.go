package event

import "errors"

var (
	ErrEmptyTitle       = errors.New("title cannot be empty")
	ErrInvalidTimeRange = errors.New("end_time must be after start_time")
	ErrInvalidWindow    = errors.New("window end must not be before its start")
)
