// internal/tokens/tokens.go
package tokens

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/memelaunch/launchpad/internal/chain"
	"github.com/memelaunch/launchpad/internal/curve"
	"github.com/memelaunch/launchpad/internal/events"
	"github.com/memelaunch/launchpad/internal/retry"
	"github.com/memelaunch/launchpad/internal/storage"
	"github.com/memelaunch/launchpad/internal/storage/models"
	"go.uber.org/zap"
)

var (
	// ErrLinkExists is returned when another token already uses the link.
	ErrLinkExists = errors.New("intuition link already used by another token")

	// ErrTokenExists is returned when the contract address is already listed.
	ErrTokenExists = errors.New("token already listed")

	// ErrTokenNotFound is returned for unknown contract addresses.
	ErrTokenNotFound = errors.New("token not found")

	// ErrInvalidToken is returned when a listing misses required fields.
	ErrInvalidToken = errors.New("invalid token")

	// ErrEmptyComment is returned for blank comment bodies.
	ErrEmptyComment = errors.New("comment is empty")
)

// MaxCommentLength bounds a comment body in bytes.
const MaxCommentLength = 1000

// Quote is the live market view of a token.
type Quote struct {
	ContractAddress string  `json:"contract_address"`
	CurrentSupply   uint64  `json:"current_supply"`
	Price           float64 `json:"price"`
	ProgressPercent float64 `json:"progress_percent"`
	MarketCap       float64 `json:"market_cap"`
	Completed       bool    `json:"completed"`
}

// InfoReader reads a token's contract record.
type InfoReader interface {
	TokenInfo(ctx context.Context, token string) (*chain.TokenInfo, error)
}

// Service manages the token catalogue.
type Service struct {
	store  storage.TokenStore
	pricer *curve.Pricer
	info   InfoReader
	fees   chain.FeeVerifier
	bus    events.Publisher
	logger *zap.Logger

	waitOpts retry.Options[*models.Token]
}

// NewService wires the catalogue. info and fees may be nil when the
// process runs without a chain connection; Quote and AddComment then fail.
func NewService(
	store storage.TokenStore,
	pricer *curve.Pricer,
	info InfoReader,
	fees chain.FeeVerifier,
	bus events.Publisher,
	logger *zap.Logger,
) *Service {
	if bus == nil {
		bus = events.Discard{}
	}
	s := &Service{
		store:  store,
		pricer: pricer,
		info:   info,
		fees:   fees,
		bus:    bus,
		logger: logger.Named("tokens"),
	}
	s.waitOpts = retry.Options[*models.Token]{
		Notify: func(err error, next time.Duration) {
			s.logger.Debug("Token not visible yet", zap.Error(err), zap.Duration("next", next))
		},
	}
	return s
}

// SetWaitOptions overrides the bounds used by WaitForToken.
func (s *Service) SetWaitOptions(attempts uint, delay time.Duration) {
	s.waitOpts.Attempts = attempts
	s.waitOpts.Delay = delay
}

var errChainUnavailable = errors.New("chain reader not configured")

// Create lists a token. Prices and market cap are derived from the curve.
func (s *Service) Create(ctx context.Context, t *models.Token) (*models.Token, error) {
	t.Name = strings.TrimSpace(t.Name)
	t.Symbol = strings.ToUpper(strings.TrimSpace(t.Symbol))
	t.ContractAddress = models.NormalizeAddress(t.ContractAddress)
	t.Creator = models.NormalizeAddress(t.Creator)

	switch {
	case t.Name == "":
		return nil, fmt.Errorf("%w: name is required", ErrInvalidToken)
	case t.Symbol == "":
		return nil, fmt.Errorf("%w: symbol is required", ErrInvalidToken)
	case !chain.IsAddress(t.ContractAddress):
		return nil, fmt.Errorf("%w: contract address %q", ErrInvalidToken, t.ContractAddress)
	case !chain.IsAddress(t.Creator):
		return nil, fmt.Errorf("%w: creator %q", ErrInvalidToken, t.Creator)
	}

	if t.IntuitionLink != nil {
		link := strings.TrimSpace(*t.IntuitionLink)
		if link == "" {
			t.IntuitionLink = nil
		} else {
			t.IntuitionLink = &link
			exists, err := s.store.LinkExists(ctx, link)
			if err != nil {
				return nil, fmt.Errorf("check link: %w", err)
			}
			if exists {
				return nil, ErrLinkExists
			}
		}
	}

	if t.MaxSupply == 0 {
		t.MaxSupply = s.pricer.Config().MaxSupply
	}
	t.StartPrice = s.pricer.Price(0)
	t.CurrentPrice = s.pricer.Price(t.CurrentSupply)
	t.MarketCap = s.pricer.MarketCap(t.CurrentSupply)

	if err := s.store.CreateToken(ctx, t); err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			return nil, ErrTokenExists
		}
		return nil, fmt.Errorf("create token: %w", err)
	}

	s.logger.Info("Token listed",
		zap.String("contract", t.ContractAddress),
		zap.String("symbol", t.Symbol),
		zap.String("creator", t.Creator))

	if err := s.bus.Publish(events.TokenCreatedEvent{
		BaseEvent:       events.NewBase(events.TokenCreated),
		ContractAddress: t.ContractAddress,
		Creator:         t.Creator,
		Symbol:          t.Symbol,
	}); err != nil {
		s.logger.Debug("Token event dropped", zap.Error(err))
	}
	return t, nil
}

// List returns the catalogue, newest first.
func (s *Service) List(ctx context.Context) ([]*models.Token, error) {
	return s.store.ListTokens(ctx)
}

// Get returns one token by contract address.
func (s *Service) Get(ctx context.Context, address string) (*models.Token, error) {
	t, err := s.store.GetToken(ctx, models.NormalizeAddress(address))
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrTokenNotFound
	}
	return t, err
}

// LinkExists reports whether a token already uses link. Blank links never
// collide.
func (s *Service) LinkExists(ctx context.Context, link string) (bool, error) {
	link = strings.TrimSpace(link)
	if link == "" {
		return false, nil
	}
	return s.store.LinkExists(ctx, link)
}

// WaitForToken polls the store until a freshly created token becomes
// readable.
func (s *Service) WaitForToken(ctx context.Context, address string) (*models.Token, error) {
	address = models.NormalizeAddress(address)
	return retry.Poll(ctx, func(ctx context.Context) (*models.Token, error) {
		t, err := s.store.GetToken(ctx, address)
		if errors.Is(err, storage.ErrNotFound) {
			return nil, retry.ErrNotReady
		}
		if err != nil {
			return nil, retry.Permanent(err)
		}
		return t, nil
	}, s.waitOpts)
}

// Quote prices a token from its live on-chain supply and refreshes the
// cached market fields of the listing.
func (s *Service) Quote(ctx context.Context, address string) (*Quote, error) {
	if s.info == nil {
		return nil, errChainUnavailable
	}
	address = models.NormalizeAddress(address)

	info, err := s.info.TokenInfo(ctx, address)
	if err != nil {
		return nil, fmt.Errorf("read token info: %w", err)
	}

	var supply uint64
	if info.CurrentSupply.IsPositive() {
		supply = uint64(info.CurrentSupply.IntPart())
	}

	q := &Quote{
		ContractAddress: address,
		CurrentSupply:   supply,
		Price:           s.pricer.Price(supply),
		ProgressPercent: s.pricer.ProgressPercent(supply),
		MarketCap:       s.pricer.MarketCap(supply),
		Completed:       info.Completed,
	}

	err = s.store.UpdateTokenMarket(ctx, address, supply, q.Price, q.MarketCap)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		s.logger.Warn("Failed to cache market data",
			zap.String("contract", address),
			zap.Error(err))
	}
	return q, nil
}

// ToggleStar flips the favourite flag and returns the new state.
func (s *Service) ToggleStar(ctx context.Context, user, token string) (bool, error) {
	user = models.NormalizeAddress(user)
	token = models.NormalizeAddress(token)

	starred, err := s.store.IsStarred(ctx, user, token)
	if err != nil {
		return false, err
	}
	if starred {
		if err := s.store.RemoveStar(ctx, user, token); err != nil {
			return true, fmt.Errorf("unstar: %w", err)
		}
		return false, nil
	}
	if err := s.store.AddStar(ctx, user, token); err != nil && !errors.Is(err, storage.ErrDuplicate) {
		return false, fmt.Errorf("star: %w", err)
	}
	return true, nil
}

// Starred lists the contract addresses user has starred.
func (s *Service) Starred(ctx context.Context, user string) ([]string, error) {
	return s.store.StarredTokens(ctx, models.NormalizeAddress(user))
}

// IsStarred reports whether user starred token.
func (s *Service) IsStarred(ctx context.Context, user, token string) (bool, error) {
	return s.store.IsStarred(ctx, models.NormalizeAddress(user), models.NormalizeAddress(token))
}

// AddComment stores a comment once its fee transaction is confirmed. A fee
// transaction pays for one comment only.
func (s *Service) AddComment(ctx context.Context, token, author, body, txHash string) (_ *models.Comment, err error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, ErrEmptyComment
	}
	if len(body) > MaxCommentLength {
		return nil, fmt.Errorf("%w: comment longer than %d bytes", ErrInvalidToken, MaxCommentLength)
	}
	if s.fees == nil {
		return nil, errChainUnavailable
	}

	t, err := s.Get(ctx, token)
	if err != nil {
		return nil, err
	}
	author = models.NormalizeAddress(author)
	txHash = models.NormalizeHash(txHash)

	if err := claimFee(ctx, s.store, txHash, author, models.FeeComment); err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			releaseFee(ctx, s.store, txHash, s.logger)
		}
	}()

	if err := s.fees.ConfirmFee(ctx, txHash, author, t.ContractAddress, chain.CommentFee); err != nil {
		return nil, fmt.Errorf("confirm comment fee: %w", err)
	}

	c := &models.Comment{
		TokenAddress: t.ContractAddress,
		Author:       author,
		Body:         body,
		TxHash:       txHash,
	}
	if err := s.store.AddComment(ctx, c); err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			return nil, chain.ErrFeeAlreadyUsed
		}
		return nil, fmt.Errorf("save comment: %w", err)
	}

	if err := s.bus.Publish(events.CommentPostedEvent{
		BaseEvent:    events.NewBase(events.CommentPosted),
		TokenAddress: c.TokenAddress,
		Author:       c.Author,
	}); err != nil {
		s.logger.Warn("Comment event dropped, points not awarded",
			zap.String("author", author),
			zap.Error(err))
	}
	return c, nil
}

// Comments lists comments on token, newest first.
func (s *Service) Comments(ctx context.Context, token string) ([]*models.Comment, error) {
	return s.store.ListComments(ctx, models.NormalizeAddress(token))
}

func claimFee(ctx context.Context, store storage.FeeStore, txHash, payer string, purpose models.FeePurpose) error {
	err := store.ClaimFee(ctx, &models.SpentFee{TxHash: txHash, Payer: payer, Purpose: purpose})
	if errors.Is(err, storage.ErrDuplicate) {
		return chain.ErrFeeAlreadyUsed
	}
	if err != nil {
		return fmt.Errorf("claim fee: %w", err)
	}
	return nil
}

// releaseFee runs after a failed action, so it ignores cancellation of ctx.
func releaseFee(ctx context.Context, store storage.FeeStore, txHash string, logger *zap.Logger) {
	if err := store.ReleaseFee(context.WithoutCancel(ctx), txHash); err != nil {
		logger.Warn("Fee claim not released", zap.String("tx_hash", txHash), zap.Error(err))
	}
}
