// internal/governance/service.go
package governance

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/memelaunch/launchpad/internal/admin"
	"github.com/memelaunch/launchpad/internal/chain"
	"github.com/memelaunch/launchpad/internal/events"
	"github.com/memelaunch/launchpad/internal/storage"
	"github.com/memelaunch/launchpad/internal/storage/models"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	// VotingPeriod is how long a proposal accepts ballots.
	VotingPeriod = 72 * time.Hour

	// CreatorVotingPower is the weight of a whitelisted voter.
	CreatorVotingPower = 20.0

	// RegularVotingPower is the weight of everyone else.
	RegularVotingPower = 1.0
)

// MinTokenHolding is the balance of the proposal's token a voter needs.
var MinTokenHolding = decimal.NewFromInt(100_000)

var (
	ErrProposalNotFound    = errors.New("proposal not found")
	ErrProposalClosed      = errors.New("proposal has been closed")
	ErrVotingEnded         = errors.New("voting period has ended")
	ErrAlreadyVoted        = errors.New("wallet has already voted on this proposal")
	ErrInsufficientHolding = errors.New("wallet must hold at least 100,000 tokens to vote")
	ErrInvalidChoice       = errors.New("vote must be yes or no")
	ErrInvalidProposal     = errors.New("invalid proposal")
)

// HoldingReader reads token balances.
type HoldingReader interface {
	TokenBalance(ctx context.Context, token, wallet string) (decimal.Decimal, error)
}

// NewProposal is the input of CreateProposal.
type NewProposal struct {
	Title        string `json:"title"`
	Description  string `json:"description"`
	TokenAddress string `json:"token_address"`
	Creator      string `json:"creator_address"`
}

// Ballot is the input of CastVote. TxHash is the fee payment; TokenAddress
// defaults to the proposal's token.
type Ballot struct {
	ProposalID   uuid.UUID `json:"proposal_id"`
	Voter        string    `json:"voter_address"`
	Choice       string    `json:"vote"`
	TokenAddress string    `json:"token_address,omitempty"`
	TxHash       string    `json:"tx_hash"`
}

// Service runs the proposal lifecycle.
type Service struct {
	store    storage.GovernanceStore
	admins   *admin.Set
	holdings HoldingReader
	fees     chain.FeeVerifier
	bus      events.Publisher
	policy   Policy
	logger   *zap.Logger
	now      func() time.Time
}

// NewService wires governance to storage and the chain.
func NewService(
	store storage.GovernanceStore,
	admins *admin.Set,
	holdings HoldingReader,
	fees chain.FeeVerifier,
	bus events.Publisher,
	policy Policy,
	logger *zap.Logger,
) *Service {
	if bus == nil {
		bus = events.Discard{}
	}
	return &Service{
		store:    store,
		admins:   admins,
		holdings: holdings,
		fees:     fees,
		bus:      bus,
		policy:   policy,
		logger:   logger.Named("governance"),
		now:      time.Now,
	}
}

// Policy returns the validity thresholds in force.
func (s *Service) Policy() Policy {
	return s.policy
}

// CreateProposal opens a proposal for VotingPeriod. Admin only.
func (s *Service) CreateProposal(ctx context.Context, in NewProposal) (*models.Proposal, error) {
	if err := s.admins.Require(in.Creator); err != nil {
		return nil, err
	}
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, fmt.Errorf("%w: title is required", ErrInvalidProposal)
	}
	if !chain.IsAddress(in.TokenAddress) {
		return nil, fmt.Errorf("%w: token address %q", ErrInvalidProposal, in.TokenAddress)
	}

	endsAt := s.now().Add(VotingPeriod)
	p := &models.Proposal{
		ID:             uuid.New(),
		Title:          title,
		Description:    strings.TrimSpace(in.Description),
		TokenAddress:   models.NormalizeAddress(in.TokenAddress),
		CreatorAddress: models.NormalizeAddress(in.Creator),
		Status:         models.ProposalActive,
		EndsAt:         &endsAt,
	}
	if err := s.store.CreateProposal(ctx, p); err != nil {
		return nil, fmt.Errorf("create proposal: %w", err)
	}

	s.logger.Info("Proposal created",
		zap.String("proposal_id", p.ID.String()),
		zap.String("token", p.TokenAddress),
		zap.Time("ends_at", endsAt))
	return p, nil
}

// ListProposals returns all proposals, newest first.
func (s *Service) ListProposals(ctx context.Context) ([]*models.Proposal, error) {
	return s.store.ListProposals(ctx)
}

// GetProposal returns one proposal.
func (s *Service) GetProposal(ctx context.Context, id uuid.UUID) (*models.Proposal, error) {
	p, err := s.store.GetProposal(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrProposalNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load proposal: %w", err)
	}
	return p, nil
}

// ProposalVotes lists the ballots of a proposal, newest first.
func (s *Service) ProposalVotes(ctx context.Context, id uuid.UUID) ([]*models.Vote, error) {
	return s.store.ListVotes(ctx, id)
}

func parseChoice(c string) (models.VoteChoice, error) {
	switch models.VoteChoice(strings.ToLower(strings.TrimSpace(c))) {
	case models.VoteYes:
		return models.VoteYes, nil
	case models.VoteNo:
		return models.VoteNo, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidChoice, c)
}

// CastVote records a ballot. Checks run in order: proposal exists and is
// open, the voting period has not ended, the voter has not voted, holds
// enough tokens and paid the fee. A fee transaction pays for one vote only.
func (s *Service) CastVote(ctx context.Context, b Ballot) (_ *models.Vote, err error) {
	choice, err := parseChoice(b.Choice)
	if err != nil {
		return nil, err
	}
	voter := models.NormalizeAddress(b.Voter)
	if !chain.IsAddress(voter) {
		return nil, fmt.Errorf("%w: voter %q", chain.ErrInvalidAddress, b.Voter)
	}

	p, err := s.GetProposal(ctx, b.ProposalID)
	if err != nil {
		return nil, err
	}
	if p.Status == models.ProposalClosed {
		return nil, ErrProposalClosed
	}
	if p.EndsAt != nil && p.EndsAt.Before(s.now()) {
		return nil, ErrVotingEnded
	}

	voted, err := s.store.HasVoted(ctx, p.ID, voter)
	if err != nil {
		return nil, fmt.Errorf("check ballot: %w", err)
	}
	if voted {
		return nil, ErrAlreadyVoted
	}

	token := p.TokenAddress
	if b.TokenAddress != "" {
		token = models.NormalizeAddress(b.TokenAddress)
	}
	balance, err := s.holdings.TokenBalance(ctx, token, voter)
	if err != nil {
		return nil, fmt.Errorf("read token balance: %w", err)
	}
	if balance.LessThan(MinTokenHolding) {
		return nil, ErrInsufficientHolding
	}

	txHash := models.NormalizeHash(b.TxHash)
	claimErr := s.store.ClaimFee(ctx, &models.SpentFee{TxHash: txHash, Payer: voter, Purpose: models.FeeVote})
	if errors.Is(claimErr, storage.ErrDuplicate) {
		return nil, chain.ErrFeeAlreadyUsed
	}
	if claimErr != nil {
		return nil, fmt.Errorf("claim voting fee: %w", claimErr)
	}
	defer func() {
		if err == nil {
			return
		}
		if relErr := s.store.ReleaseFee(context.WithoutCancel(ctx), txHash); relErr != nil {
			s.logger.Warn("Fee claim not released", zap.String("tx_hash", txHash), zap.Error(relErr))
		}
	}()

	if err := s.fees.ConfirmFee(ctx, txHash, voter, token, chain.CommentFee); err != nil {
		return nil, fmt.Errorf("confirm voting fee: %w", err)
	}

	whitelisted, err := s.store.IsWhitelisted(ctx, p.ID, voter)
	if err != nil {
		return nil, fmt.Errorf("check whitelist: %w", err)
	}
	power := RegularVotingPower
	if whitelisted {
		power = CreatorVotingPower
	}

	vote := &models.Vote{
		ID:           uuid.New(),
		ProposalID:   p.ID,
		VoterAddress: voter,
		Choice:       choice,
		VotingPower:  power,
		TxHash:       &txHash,
	}
	if err := s.store.RecordVote(ctx, vote); err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			return nil, ErrAlreadyVoted
		}
		return nil, fmt.Errorf("record vote: %w", err)
	}

	s.logger.Info("Vote recorded",
		zap.String("proposal_id", p.ID.String()),
		zap.String("voter", voter),
		zap.String("vote", string(choice)),
		zap.Float64("voting_power", power))

	if err := s.bus.Publish(events.VoteCastEvent{
		BaseEvent:   events.NewBase(events.VoteCast),
		ProposalID:  p.ID,
		Voter:       voter,
		Choice:      string(choice),
		VotingPower: power,
	}); err != nil {
		s.logger.Debug("Vote event dropped", zap.Error(err))
	}
	return vote, nil
}

// TallyOf extracts the counters of a proposal.
func TallyOf(p *models.Proposal) Tally {
	return Tally{
		YesVotes:       p.YesVotes,
		NoVotes:        p.NoVotes,
		YesVotingPower: p.YesVotingPower,
		NoVotingPower:  p.NoVotingPower,
	}
}

// Verdict evaluates the current tally of a proposal.
func (s *Service) Verdict(ctx context.Context, id uuid.UUID) (Verdict, error) {
	p, err := s.GetProposal(ctx, id)
	if err != nil {
		return Verdict{}, err
	}
	return Evaluate(TallyOf(p), s.policy), nil
}

// CloseProposal stops voting on a proposal. Admin only.
func (s *Service) CloseProposal(ctx context.Context, caller string, id uuid.UUID) (Verdict, error) {
	if err := s.admins.Require(caller); err != nil {
		return Verdict{}, err
	}
	if err := s.store.SetProposalStatus(ctx, id, models.ProposalClosed); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return Verdict{}, ErrProposalNotFound
		}
		return Verdict{}, fmt.Errorf("close proposal: %w", err)
	}

	v, err := s.Verdict(ctx, id)
	if err != nil {
		return Verdict{}, err
	}

	s.logger.Info("Proposal closed",
		zap.String("proposal_id", id.String()),
		zap.Bool("valid", v.IsValid),
		zap.Strings("reasons", v.Reasons))

	if err := s.bus.Publish(events.ProposalClosedEvent{
		BaseEvent:  events.NewBase(events.ProposalClosed),
		ProposalID: id,
		IsValid:    v.IsValid,
	}); err != nil {
		s.logger.Debug("Close event dropped", zap.Error(err))
	}
	return v, nil
}

// AddToWhitelist grants creator voting power on a proposal. Admin only.
func (s *Service) AddToWhitelist(ctx context.Context, caller string, id uuid.UUID, wallet string) error {
	if err := s.admins.Require(caller); err != nil {
		return err
	}
	if !chain.IsAddress(wallet) {
		return fmt.Errorf("%w: %q", chain.ErrInvalidAddress, wallet)
	}
	if _, err := s.GetProposal(ctx, id); err != nil {
		return err
	}

	err := s.store.AddWhitelist(ctx, &models.WhitelistEntry{
		ID:            uuid.New(),
		ProposalID:    id,
		WalletAddress: models.NormalizeAddress(wallet),
	})
	if err != nil && !errors.Is(err, storage.ErrDuplicate) {
		return fmt.Errorf("add to whitelist: %w", err)
	}
	return nil
}

// RemoveFromWhitelist revokes creator voting power. Admin only.
func (s *Service) RemoveFromWhitelist(ctx context.Context, caller string, id uuid.UUID, wallet string) error {
	if err := s.admins.Require(caller); err != nil {
		return err
	}
	if err := s.store.RemoveWhitelist(ctx, id, models.NormalizeAddress(wallet)); err != nil {
		return fmt.Errorf("remove from whitelist: %w", err)
	}
	return nil
}

// Whitelist lists the whitelisted wallets of a proposal.
func (s *Service) Whitelist(ctx context.Context, id uuid.UUID) ([]*models.WhitelistEntry, error) {
	return s.store.ListWhitelist(ctx, id)
}
