package domain

import "time"

// DeliveryRecord tracks one group message sent by the bot so the autodelete
// sweeper can remove it later. Individual-user deliveries are not tracked.
// PK: chat_id, SK: message_id. delivered_at is stored as epoch seconds so
// the sweeper's cutoff filter compares numerically.
type DeliveryRecord struct {
	ChatID      int64     `json:"chat_id" dynamodbav:"chat_id"`
	MessageID   int64     `json:"message_id" dynamodbav:"message_id"`
	DeliveredAt time.Time `json:"delivered_at" dynamodbav:"delivered_at,unixtime"`
}
