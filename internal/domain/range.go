package domain

import "time"

// NumberRange describes one uploaded batch of rentable phone numbers.
// The number list itself lives in object storage under FileKey; only
// metadata is kept here.
// PK: range_id.
type NumberRange struct {
	RangeID    string    `json:"range_id" dynamodbav:"range_id"`
	Country    string    `json:"country" dynamodbav:"country"`
	Flag       string    `json:"flag" dynamodbav:"flag"`
	Service    string    `json:"service" dynamodbav:"service"`
	FileKey    string    `json:"file_key" dynamodbav:"file_key"`
	Capacity   int       `json:"capacity" dynamodbav:"capacity"` // non-blank lines at upload
	UploadedAt time.Time `json:"uploaded_at" dynamodbav:"uploaded_at"`
}
