package models

import "time"

type Action string

const (
	ActionRead        Action = "read"
	ActionWrite       Action = "write"
	ActionEnqueue     Action = "enqueue"
	ActionClaim       Action = "claim"
	ActionComplete    Action = "complete"
	ActionSweep       Action = "sweep"
	ActionTokenCreate Action = "token.create"
	ActionTokenRevoke Action = "token.revoke"
)

// ActivityEntry is one append-only audit row.
type ActivityEntry struct {
	ID          int64     `json:"id"`
	OwnerID     string    `json:"-"`
	TokenID     string    `json:"tokenId,omitempty"`
	TokenPrefix string    `json:"tokenPrefix,omitempty"`
	Action      Action    `json:"action"`
	Resource    string    `json:"resource"`
	Count       int       `json:"count"`
	Detail      string    `json:"detail,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}
