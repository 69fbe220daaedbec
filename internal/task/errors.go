package task

import "errors"

var (
	ErrInvalidStatus   = errors.New("invalid task status")
	ErrInvalidPriority = errors.New("priority must be between 1 and 4")
	ErrEmptyTitle      = errors.New("title cannot be empty")
)
