package models

import (
	"encoding/json"
	"time"
)

type JobStatus string

const (
	JobPending   JobStatus = "pending"
	JobClaimed   JobStatus = "claimed"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
)

// WriteJob is an action the origin device performs on the server's behalf,
// e.g. sending a message from the paired phone.
type WriteJob struct {
	ID          string          `json:"id"`
	OwnerID     string          `json:"-"`
	TokenID     string          `json:"tokenId"`
	Type        string          `json:"type"`
	Payload     json.RawMessage `json:"payload"`
	Status      JobStatus       `json:"status"`
	ClaimedBy   *string         `json:"claimedBy"`
	Error       *string         `json:"error"`
	CreatedAt   time.Time       `json:"createdAt"`
	ClaimedAt   *time.Time      `json:"claimedAt"`
	CompletedAt *time.Time      `json:"completedAt"`
}
