package digest

import "errors"

var (
	ErrUnknownPeriod = errors.New("unknown digest period")
	ErrUserNotFound  = errors.New("digest user not found")
	ErrMailDisabled  = errors.New("mail transport is not configured")
)
