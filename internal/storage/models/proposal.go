// internal/storage/models/proposal.go
package models

import (
	"time"

	"github.com/google/uuid"
)

type ProposalStatus string

const (
	ProposalActive ProposalStatus = "active"
	ProposalClosed ProposalStatus = "closed"
)

type VoteChoice string

const (
	VoteYes VoteChoice = "yes"
	VoteNo  VoteChoice = "no"
)

// Proposal is a governance question scoped to one token. Vote counts and
// voting power are denormalised onto the row and bumped with every vote.
type Proposal struct {
	ID             uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Title          string         `gorm:"not null;type:varchar(200)" json:"title"`
	Description    string         `gorm:"type:text" json:"description"`
	TokenAddress   string         `gorm:"index;not null;type:varchar(42)" json:"token_address"`
	CreatorAddress string         `gorm:"not null;type:varchar(42)" json:"creator_address"`
	Status         ProposalStatus `gorm:"index;not null;type:varchar(16);default:active" json:"status"`
	YesVotes       uint32         `gorm:"not null;default:0" json:"yes_votes"`
	NoVotes        uint32         `gorm:"not null;default:0" json:"no_votes"`
	YesVotingPower float64        `gorm:"type:double precision;not null;default:0" json:"yes_voting_power"`
	NoVotingPower  float64        `gorm:"type:double precision;not null;default:0" json:"no_voting_power"`
	EndsAt         *time.Time     `gorm:"index" json:"ends_at"`
	TxHash         *string        `gorm:"type:varchar(66)" json:"tx_hash"`
	CreatedAt      time.Time      `gorm:"index" json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// Vote is one wallet's ballot on a proposal. A wallet votes at most once.
type Vote struct {
	ID           uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	ProposalID   uuid.UUID  `gorm:"type:uuid;uniqueIndex:idx_vote_proposal_voter,priority:1;not null" json:"proposal_id"`
	VoterAddress string     `gorm:"uniqueIndex:idx_vote_proposal_voter,priority:2;not null;type:varchar(42)" json:"voter_address"`
	Choice       VoteChoice `gorm:"not null;type:varchar(3)" json:"vote"`
	VotingPower  float64    `gorm:"type:double precision;not null" json:"voting_power"`
	TxHash       *string    `gorm:"uniqueIndex;type:varchar(66)" json:"tx_hash"`
	CreatedAt    time.Time  `gorm:"index" json:"created_at"`
}

// WhitelistEntry grants creator voting power on a proposal.
type WhitelistEntry struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ProposalID    uuid.UUID `gorm:"type:uuid;uniqueIndex:idx_whitelist_proposal_wallet,priority:1;not null" json:"proposal_id"`
	WalletAddress string    `gorm:"uniqueIndex:idx_whitelist_proposal_wallet,priority:2;not null;type:varchar(42)" json:"wallet_address"`
	CreatedAt     time.Time `json:"created_at"`
}
