package mq

import "time"

const RoutingDigestTestRequested = "digest.test_requested"

type DigestTestRequestedPayload struct {
	RequestID   string    `json:"request_id"`
	UserID      string    `json:"user_id"`
	Period      string    `json:"period"` // daily / weekly
	RequestedAt time.Time `json:"requested_at"`
}
