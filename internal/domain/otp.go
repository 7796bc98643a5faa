package domain

import "time"

// OTPNotFound is the sentinel code stored when no OTP could be extracted
// from a message body. Records with this code are still persisted and
// broadcast; extraction ambiguity is not an error.
const OTPNotFound = "N/A"

// OTPRecord is one observed inbound SMS with its extraction result.
// PK: record_id. GSI: day-index (day, received_at) for per-day stats queries.
// ExpiresAt is a Unix timestamp used as DynamoDB TTL for 24h retention.
type OTPRecord struct {
	RecordID   string    `json:"record_id" dynamodbav:"record_id"`
	Phone      string    `json:"phone" dynamodbav:"phone"`
	Message    string    `json:"message" dynamodbav:"message"`
	Service    string    `json:"service" dynamodbav:"service"` // provider sender label
	Country    string    `json:"country" dynamodbav:"country"`
	OTP        string    `json:"otp" dynamodbav:"otp"` // extracted code or OTPNotFound
	Day        string    `json:"day" dynamodbav:"day"` // "2006-01-02", UTC
	ReceivedAt time.Time `json:"received_at" dynamodbav:"received_at"`
	ExpiresAt  int64     `json:"expires_at" dynamodbav:"expires_at"` // TTL (Unix seconds)
}
