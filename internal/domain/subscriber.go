package domain

import "time"

// MaxSubscriberNumbers caps how many phone numbers a single request may
// watch. Enforced by the subscription service, not the store.
const MaxSubscriberNumbers = 10

// SubscriberRequest registers a user's interest in OTPs for a set of phone
// numbers. At most one active request per user; a new request fully replaces
// any prior one.
// PK: user_id.
type SubscriberRequest struct {
	UserID    int64     `json:"user_id" dynamodbav:"user_id"`
	Numbers   []string  `json:"numbers" dynamodbav:"numbers"`
	UpdatedAt time.Time `json:"updated_at" dynamodbav:"updated_at"`
}

// Watches reports whether the request includes the given phone number.
func (r *SubscriberRequest) Watches(phone string) bool {
	for _, n := range r.Numbers {
		if n == phone {
			return true
		}
	}
	return false
}
