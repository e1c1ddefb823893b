// internal/events/types.go
package events

import (
	"time"

	"github.com/google/uuid"
)

// EventType names a kind of launchpad activity.
type EventType string

const (
	TokenCreated         EventType = "token.created"
	CommentPosted        EventType = "comment.posted"
	VoteCast             EventType = "vote.cast"
	ProposalClosed       EventType = "proposal.closed"
	PointsUpdated        EventType = "points.updated"
	LeaderboardRefreshed EventType = "leaderboard.refreshed"
)

// Event is the base interface for all events.
type Event interface {
	Type() EventType
	Timestamp() time.Time
}

// BaseEvent provides common fields for all events.
type BaseEvent struct {
	EventType EventType
	EventTime time.Time
}

func (e BaseEvent) Type() EventType      { return e.EventType }
func (e BaseEvent) Timestamp() time.Time { return e.EventTime }

// NewBase stamps an event of type t with the current time.
func NewBase(t EventType) BaseEvent {
	return BaseEvent{EventType: t, EventTime: time.Now()}
}

// TokenCreatedEvent is emitted after a token is listed.
type TokenCreatedEvent struct {
	BaseEvent
	ContractAddress string
	Creator         string
	Symbol          string
}

// CommentPostedEvent is emitted after a paid comment is stored.
type CommentPostedEvent struct {
	BaseEvent
	TokenAddress string
	Author       string
}

// VoteCastEvent is emitted after a ballot is recorded.
type VoteCastEvent struct {
	BaseEvent
	ProposalID  uuid.UUID
	Voter       string
	Choice      string
	VotingPower float64
}

// ProposalClosedEvent is emitted when an admin closes a proposal.
type ProposalClosedEvent struct {
	BaseEvent
	ProposalID uuid.UUID
	IsValid    bool
}

// PointsUpdatedEvent is emitted when a wallet's ledger changes.
type PointsUpdatedEvent struct {
	BaseEvent
	Wallet string
	Points float64
}

// LeaderboardRefreshedEvent is emitted after the leaderboard cache is rebuilt.
type LeaderboardRefreshedEvent struct {
	BaseEvent
	TopTraders int
	MostActive int
}
