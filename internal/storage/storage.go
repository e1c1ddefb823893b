// internal/storage/storage.go
package storage

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/memelaunch/launchpad/internal/storage/models"
)

var (
	// ErrNotFound is returned when a lookup matches no row.
	ErrNotFound = errors.New("record not found")

	// ErrDuplicate is returned when an insert violates a unique key.
	ErrDuplicate = errors.New("duplicate record")
)

// FeeStore remembers which fee transactions already paid for an action.
type FeeStore interface {
	// ClaimFee marks fee.TxHash as spent, or fails with ErrDuplicate when
	// it already is.
	ClaimFee(ctx context.Context, fee *models.SpentFee) error
	// ReleaseFee frees a claim whose action was not stored.
	ReleaseFee(ctx context.Context, txHash string) error
}

// TokenStore persists the token catalogue, stars and comments.
type TokenStore interface {
	FeeStore

	CreateToken(ctx context.Context, token *models.Token) error
	GetToken(ctx context.Context, contractAddress string) (*models.Token, error)
	ListTokens(ctx context.Context) ([]*models.Token, error)
	LinkExists(ctx context.Context, link string) (bool, error)
	UpdateTokenMarket(ctx context.Context, contractAddress string, supply uint64, price, marketCap float64) error

	AddStar(ctx context.Context, userAddress, tokenAddress string) error
	RemoveStar(ctx context.Context, userAddress, tokenAddress string) error
	IsStarred(ctx context.Context, userAddress, tokenAddress string) (bool, error)
	StarredTokens(ctx context.Context, userAddress string) ([]string, error)

	AddComment(ctx context.Context, comment *models.Comment) error
	ListComments(ctx context.Context, tokenAddress string) ([]*models.Comment, error)
}

// PointsStore persists reward ledgers and profiles.
type PointsStore interface {
	GetPoints(ctx context.Context, walletAddress string) (*models.UserPoints, error)
	UpsertPoints(ctx context.Context, points *models.UserPoints) error
	TopByPoints(ctx context.Context, limit int) ([]*models.UserPoints, error)
	// TopByVolume returns only wallets with non-zero volume.
	TopByVolume(ctx context.Context, limit int) ([]*models.UserPoints, error)
	DisplayNames(ctx context.Context, walletAddresses []string) (map[string]string, error)
}

// GovernanceStore persists proposals, ballots and whitelists.
type GovernanceStore interface {
	FeeStore
	CreateProposal(ctx context.Context, p *models.Proposal) error
	GetProposal(ctx context.Context, id uuid.UUID) (*models.Proposal, error)
	ListProposals(ctx context.Context) ([]*models.Proposal, error)
	SetProposalStatus(ctx context.Context, id uuid.UUID, status models.ProposalStatus) error

	HasVoted(ctx context.Context, id uuid.UUID, voterAddress string) (bool, error)
	// RecordVote inserts the ballot and bumps the proposal tally atomically.
	RecordVote(ctx context.Context, vote *models.Vote) error
	ListVotes(ctx context.Context, id uuid.UUID) ([]*models.Vote, error)

	AddWhitelist(ctx context.Context, entry *models.WhitelistEntry) error
	RemoveWhitelist(ctx context.Context, id uuid.UUID, walletAddress string) error
	IsWhitelisted(ctx context.Context, id uuid.UUID, walletAddress string) (bool, error)
	ListWhitelist(ctx context.Context, id uuid.UUID) ([]*models.WhitelistEntry, error)
}

// Storage is the full relational backend.
type Storage interface {
	TokenStore
	PointsStore
	GovernanceStore

	RunMigrations() error
	Close() error
}
