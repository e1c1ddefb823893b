// internal/storage/memory/memory.go
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/memelaunch/launchpad/internal/storage"
	"github.com/memelaunch/launchpad/internal/storage/models"
)

type starKey struct{ user, token string }

type memberKey struct {
	proposal uuid.UUID
	wallet   string
}

// Store is an in-process storage.Storage used for local runs and tests.
// Reads return copies, so callers never alias stored rows.
type Store struct {
	mu sync.RWMutex

	nextID   uint
	tokens   []*models.Token
	stars    map[starKey]time.Time
	comments []*models.Comment

	points   map[string]*models.UserPoints
	profiles map[string]string

	proposals map[uuid.UUID]*models.Proposal
	order     []uuid.UUID
	votes     []*models.Vote
	voted     map[memberKey]bool
	whitelist map[memberKey]*models.WhitelistEntry

	fees map[string]*models.SpentFee

	now func() time.Time
}

var _ storage.Storage = (*Store)(nil)

// New returns an empty store.
func New() *Store {
	return &Store{
		stars:     make(map[starKey]time.Time),
		points:    make(map[string]*models.UserPoints),
		profiles:  make(map[string]string),
		proposals: make(map[uuid.UUID]*models.Proposal),
		voted:     make(map[memberKey]bool),
		whitelist: make(map[memberKey]*models.WhitelistEntry),
		fees:      make(map[string]*models.SpentFee),
		now:       time.Now,
	}
}

func (s *Store) RunMigrations() error { return nil }
func (s *Store) Close() error         { return nil }

// SetDisplayName records a profile name for a wallet.
func (s *Store) SetDisplayName(walletAddress, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[models.NormalizeAddress(walletAddress)] = name
}

func (s *Store) stamp(b *models.BaseModel) {
	s.nextID++
	now := s.now()
	b.ID = s.nextID
	b.CreatedAt = now
	b.UpdatedAt = now
}

// Tokens

func (s *Store) CreateToken(_ context.Context, token *models.Token) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, t := range s.tokens {
		if t.ContractAddress == token.ContractAddress {
			return storage.ErrDuplicate
		}
		if token.IntuitionLink != nil && t.IntuitionLink != nil && *t.IntuitionLink == *token.IntuitionLink {
			return storage.ErrDuplicate
		}
	}
	s.stamp(&token.BaseModel)
	cp := *token
	s.tokens = append(s.tokens, &cp)
	return nil
}

func (s *Store) GetToken(_ context.Context, contractAddress string) (*models.Token, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	addr := models.NormalizeAddress(contractAddress)
	for _, t := range s.tokens {
		if t.ContractAddress == addr {
			cp := *t
			return &cp, nil
		}
	}
	return nil, storage.ErrNotFound
}

func (s *Store) ListTokens(_ context.Context) ([]*models.Token, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.Token, 0, len(s.tokens))
	for i := len(s.tokens) - 1; i >= 0; i-- {
		cp := *s.tokens[i]
		out = append(out, &cp)
	}
	return out, nil
}

func (s *Store) LinkExists(_ context.Context, link string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, t := range s.tokens {
		if t.IntuitionLink != nil && *t.IntuitionLink == link {
			return true, nil
		}
	}
	return false, nil
}

func (s *Store) UpdateTokenMarket(_ context.Context, contractAddress string, supply uint64, price, marketCap float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	addr := models.NormalizeAddress(contractAddress)
	for _, t := range s.tokens {
		if t.ContractAddress == addr {
			t.CurrentSupply = supply
			t.CurrentPrice = price
			t.MarketCap = marketCap
			t.UpdatedAt = s.now()
			return nil
		}
	}
	return storage.ErrNotFound
}

// Stars

func (s *Store) AddStar(_ context.Context, userAddress, tokenAddress string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := starKey{models.NormalizeAddress(userAddress), models.NormalizeAddress(tokenAddress)}
	if _, ok := s.stars[key]; ok {
		return storage.ErrDuplicate
	}
	s.stars[key] = s.now()
	return nil
}

func (s *Store) RemoveStar(_ context.Context, userAddress, tokenAddress string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.stars, starKey{models.NormalizeAddress(userAddress), models.NormalizeAddress(tokenAddress)})
	return nil
}

func (s *Store) IsStarred(_ context.Context, userAddress, tokenAddress string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.stars[starKey{models.NormalizeAddress(userAddress), models.NormalizeAddress(tokenAddress)}]
	return ok, nil
}

func (s *Store) StarredTokens(_ context.Context, userAddress string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user := models.NormalizeAddress(userAddress)
	out := make([]string, 0)
	for k := range s.stars {
		if k.user == user {
			out = append(out, k.token)
		}
	}
	sort.Strings(out)
	return out, nil
}

// Fees

func (s *Store) ClaimFee(_ context.Context, fee *models.SpentFee) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	hash := models.NormalizeHash(fee.TxHash)
	if _, ok := s.fees[hash]; ok {
		return fmt.Errorf("%w: fee %s", storage.ErrDuplicate, hash)
	}
	cp := *fee
	cp.TxHash = hash
	cp.CreatedAt = s.now()
	s.fees[hash] = &cp
	return nil
}

func (s *Store) ReleaseFee(_ context.Context, txHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.fees, models.NormalizeHash(txHash))
	return nil
}

// Comments

func (s *Store) AddComment(_ context.Context, comment *models.Comment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stamp(&comment.BaseModel)
	cp := *comment
	s.comments = append(s.comments, &cp)
	return nil
}

func (s *Store) ListComments(_ context.Context, tokenAddress string) ([]*models.Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	addr := models.NormalizeAddress(tokenAddress)
	out := make([]*models.Comment, 0)
	for i := len(s.comments) - 1; i >= 0; i-- {
		if s.comments[i].TokenAddress == addr {
			cp := *s.comments[i]
			out = append(out, &cp)
		}
	}
	return out, nil
}

// Points

func (s *Store) GetPoints(_ context.Context, walletAddress string) (*models.UserPoints, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.points[models.NormalizeAddress(walletAddress)]
	if !ok {
		return nil, storage.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *Store) UpsertPoints(_ context.Context, points *models.UserPoints) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	addr := models.NormalizeAddress(points.WalletAddress)
	if existing, ok := s.points[addr]; ok {
		points.BaseModel = existing.BaseModel
		points.UpdatedAt = s.now()
	} else {
		s.stamp(&points.BaseModel)
	}
	cp := *points
	cp.WalletAddress = addr
	s.points[addr] = &cp
	return nil
}

func (s *Store) sortedPoints(less func(a, b *models.UserPoints) bool, keep func(*models.UserPoints) bool, limit int) []*models.UserPoints {
	rows := make([]*models.UserPoints, 0, len(s.points))
	for _, p := range s.points {
		if keep(p) {
			cp := *p
			rows = append(rows, &cp)
		}
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if less(rows[i], rows[j]) {
			return true
		}
		if less(rows[j], rows[i]) {
			return false
		}
		return rows[i].WalletAddress < rows[j].WalletAddress
	})
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}
	return rows
}

func (s *Store) TopByPoints(_ context.Context, limit int) ([]*models.UserPoints, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.sortedPoints(
		func(a, b *models.UserPoints) bool { return a.Points > b.Points },
		func(*models.UserPoints) bool { return true },
		limit,
	), nil
}

func (s *Store) TopByVolume(_ context.Context, limit int) ([]*models.UserPoints, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.sortedPoints(
		func(a, b *models.UserPoints) bool { return a.TotalVolume.GreaterThan(b.TotalVolume) },
		func(p *models.UserPoints) bool { return p.TotalVolume.IsPositive() },
		limit,
	), nil
}

func (s *Store) DisplayNames(_ context.Context, walletAddresses []string) (map[string]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make(map[string]string, len(walletAddresses))
	for _, addr := range walletAddresses {
		if name, ok := s.profiles[addr]; ok && name != "" {
			names[addr] = name
		}
	}
	return names, nil
}

// Governance

func (s *Store) CreateProposal(_ context.Context, p *models.Proposal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if _, ok := s.proposals[p.ID]; ok {
		return storage.ErrDuplicate
	}
	now := s.now()
	p.CreatedAt, p.UpdatedAt = now, now
	if p.Status == "" {
		p.Status = models.ProposalActive
	}
	cp := *p
	s.proposals[p.ID] = &cp
	s.order = append(s.order, p.ID)
	return nil
}

func (s *Store) GetProposal(_ context.Context, id uuid.UUID) (*models.Proposal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.proposals[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *Store) ListProposals(_ context.Context) ([]*models.Proposal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.Proposal, 0, len(s.order))
	for i := len(s.order) - 1; i >= 0; i-- {
		cp := *s.proposals[s.order[i]]
		out = append(out, &cp)
	}
	return out, nil
}

func (s *Store) SetProposalStatus(_ context.Context, id uuid.UUID, status models.ProposalStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.proposals[id]
	if !ok {
		return storage.ErrNotFound
	}
	p.Status = status
	p.UpdatedAt = s.now()
	return nil
}

func (s *Store) HasVoted(_ context.Context, id uuid.UUID, voterAddress string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.voted[memberKey{id, models.NormalizeAddress(voterAddress)}], nil
}

func (s *Store) RecordVote(_ context.Context, vote *models.Vote) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.proposals[vote.ProposalID]
	if !ok {
		return storage.ErrNotFound
	}
	key := memberKey{vote.ProposalID, models.NormalizeAddress(vote.VoterAddress)}
	if s.voted[key] {
		return storage.ErrDuplicate
	}

	if vote.ID == uuid.Nil {
		vote.ID = uuid.New()
	}
	vote.CreatedAt = s.now()
	cp := *vote
	s.votes = append(s.votes, &cp)
	s.voted[key] = true

	if vote.Choice == models.VoteYes {
		p.YesVotes++
		p.YesVotingPower += vote.VotingPower
	} else {
		p.NoVotes++
		p.NoVotingPower += vote.VotingPower
	}
	p.UpdatedAt = vote.CreatedAt
	return nil
}

func (s *Store) ListVotes(_ context.Context, id uuid.UUID) ([]*models.Vote, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.Vote, 0)
	for i := len(s.votes) - 1; i >= 0; i-- {
		if s.votes[i].ProposalID == id {
			cp := *s.votes[i]
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *Store) AddWhitelist(_ context.Context, entry *models.WhitelistEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := memberKey{entry.ProposalID, models.NormalizeAddress(entry.WalletAddress)}
	if _, ok := s.whitelist[key]; ok {
		return storage.ErrDuplicate
	}
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	entry.CreatedAt = s.now()
	cp := *entry
	s.whitelist[key] = &cp
	return nil
}

func (s *Store) RemoveWhitelist(_ context.Context, id uuid.UUID, walletAddress string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.whitelist, memberKey{id, models.NormalizeAddress(walletAddress)})
	return nil
}

func (s *Store) IsWhitelisted(_ context.Context, id uuid.UUID, walletAddress string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.whitelist[memberKey{id, models.NormalizeAddress(walletAddress)}]
	return ok, nil
}

func (s *Store) ListWhitelist(_ context.Context, id uuid.UUID) ([]*models.WhitelistEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.WhitelistEntry, 0)
	for k, e := range s.whitelist {
		if k.proposal == id {
			cp := *e
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].WalletAddress < out[j].WalletAddress })
	return out, nil
}
