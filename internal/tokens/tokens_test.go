// internal/tokens/tokens_test.go
package tokens

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/memelaunch/launchpad/internal/chain"
	"github.com/memelaunch/launchpad/internal/curve"
	"github.com/memelaunch/launchpad/internal/events"
	"github.com/memelaunch/launchpad/internal/retry"
	"github.com/memelaunch/launchpad/internal/storage"
	"github.com/memelaunch/launchpad/internal/storage/memory"
	"github.com/memelaunch/launchpad/internal/storage/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	tokenAddr   = "0x00000000000000000000000000000000000000AA"
	tokenAddr2  = "0x00000000000000000000000000000000000000ac"
	creatorAddr = "0x00000000000000000000000000000000000000BB"
	userAddr    = "0x00000000000000000000000000000000000000cc"
)

type mockChain struct {
	mock.Mock
}

func (m *mockChain) TokenInfo(ctx context.Context, token string) (*chain.TokenInfo, error) {
	args := m.Called(ctx, token)
	info, _ := args.Get(0).(*chain.TokenInfo)
	return info, args.Error(1)
}

func (m *mockChain) ConfirmFee(ctx context.Context, txHash, payer, token string, fee decimal.Decimal) error {
	return m.Called(ctx, txHash, payer, token, fee).Error(0)
}

func newService(t *testing.T, store storage.TokenStore, c *mockChain, bus events.Publisher) *Service {
	t.Helper()
	svc := NewService(store, curve.MustPricer(curve.DefaultConfig()), c, c, bus, zap.NewNop())
	svc.SetWaitOptions(3, time.Millisecond)
	return svc
}

func link(s string) *string { return &s }

func TestCreate_DerivesPricesFromCurve(t *testing.T) {
	svc := newService(t, memory.New(), &mockChain{}, nil)

	tok, err := svc.Create(context.Background(), &models.Token{
		Name:            " Pepe ",
		Symbol:          "pepe",
		ContractAddress: tokenAddr,
		Creator:         creatorAddr,
		CurrentSupply:   350_000_000,
	})
	require.NoError(t, err)

	assert.Equal(t, "Pepe", tok.Name)
	assert.Equal(t, "PEPE", tok.Symbol)
	assert.Equal(t, strings.ToLower(tokenAddr), tok.ContractAddress)
	assert.Equal(t, strings.ToLower(creatorAddr), tok.Creator)
	assert.Equal(t, uint64(curve.DefaultMaxSupply), tok.MaxSupply)
	assert.InDelta(t, 0.0001533, tok.StartPrice, 1e-12)
	assert.InDelta(t, 0.000206955, tok.CurrentPrice, 1e-12)
	assert.InDelta(t, tok.CurrentPrice*350_000_000, tok.MarketCap, 1e-6)
}

func TestCreate_Validation(t *testing.T) {
	svc := newService(t, memory.New(), &mockChain{}, nil)
	ctx := context.Background()

	tests := []struct {
		name  string
		token models.Token
	}{
		{"missing name", models.Token{Symbol: "X", ContractAddress: tokenAddr, Creator: creatorAddr}},
		{"missing symbol", models.Token{Name: "X", ContractAddress: tokenAddr, Creator: creatorAddr}},
		{"bad contract", models.Token{Name: "X", Symbol: "X", ContractAddress: "0x12", Creator: creatorAddr}},
		{"bad creator", models.Token{Name: "X", Symbol: "X", ContractAddress: tokenAddr, Creator: "nope"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tok := tt.token
			_, err := svc.Create(ctx, &tok)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestCreate_LinkUniqueness(t *testing.T) {
	svc := newService(t, memory.New(), &mockChain{}, nil)
	ctx := context.Background()

	_, err := svc.Create(ctx, &models.Token{
		Name: "A", Symbol: "A", ContractAddress: tokenAddr, Creator: creatorAddr,
		IntuitionLink: link("https://portal.intuition.systems/a"),
	})
	require.NoError(t, err)

	exists, err := svc.LinkExists(ctx, " https://portal.intuition.systems/a ")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = svc.LinkExists(ctx, "   ")
	require.NoError(t, err)
	assert.False(t, exists)

	_, err = svc.Create(ctx, &models.Token{
		Name: "B", Symbol: "B", ContractAddress: tokenAddr2, Creator: creatorAddr,
		IntuitionLink: link("https://portal.intuition.systems/a"),
	})
	assert.ErrorIs(t, err, ErrLinkExists)

	// Blank links are not links.
	tok, err := svc.Create(ctx, &models.Token{
		Name: "B", Symbol: "B", ContractAddress: tokenAddr2, Creator: creatorAddr,
		IntuitionLink: link(" "),
	})
	require.NoError(t, err)
	assert.Nil(t, tok.IntuitionLink)
}

func TestCreate_DuplicateContract(t *testing.T) {
	svc := newService(t, memory.New(), &mockChain{}, nil)
	ctx := context.Background()

	_, err := svc.Create(ctx, &models.Token{Name: "A", Symbol: "A", ContractAddress: tokenAddr, Creator: creatorAddr})
	require.NoError(t, err)
	_, err = svc.Create(ctx, &models.Token{Name: "A", Symbol: "A", ContractAddress: strings.ToLower(tokenAddr), Creator: creatorAddr})
	assert.ErrorIs(t, err, ErrTokenExists)
}

func TestList_NewestFirst(t *testing.T) {
	svc := newService(t, memory.New(), &mockChain{}, nil)
	ctx := context.Background()

	_, err := svc.Create(ctx, &models.Token{Name: "Old", Symbol: "OLD", ContractAddress: tokenAddr, Creator: creatorAddr})
	require.NoError(t, err)
	_, err = svc.Create(ctx, &models.Token{Name: "New", Symbol: "NEW", ContractAddress: tokenAddr2, Creator: creatorAddr})
	require.NoError(t, err)

	list, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "NEW", list[0].Symbol)
	assert.Equal(t, "OLD", list[1].Symbol)
}

func TestQuote_UsesLiveSupply(t *testing.T) {
	store := memory.New()
	c := &mockChain{}
	svc := newService(t, store, c, nil)
	ctx := context.Background()

	_, err := svc.Create(ctx, &models.Token{Name: "A", Symbol: "A", ContractAddress: tokenAddr, Creator: creatorAddr})
	require.NoError(t, err)

	c.On("TokenInfo", mock.Anything, strings.ToLower(tokenAddr)).Return(&chain.TokenInfo{
		CurrentSupply: decimal.RequireFromString("800000000.75"),
	}, nil)

	q, err := svc.Quote(ctx, tokenAddr)
	require.NoError(t, err)
	assert.Equal(t, uint64(800_000_000), q.CurrentSupply)
	assert.InDelta(t, 0.00026061, q.Price, 1e-9)
	assert.Equal(t, 100.0, q.ProgressPercent)

	tok, err := svc.Get(ctx, tokenAddr)
	require.NoError(t, err)
	assert.Equal(t, uint64(800_000_000), tok.CurrentSupply)
	assert.InDelta(t, q.Price, tok.CurrentPrice, 1e-12)
}

func TestQuote_ChainError(t *testing.T) {
	c := &mockChain{}
	c.On("TokenInfo", mock.Anything, mock.Anything).Return(nil, errors.New("rpc down"))
	svc := newService(t, memory.New(), c, nil)

	_, err := svc.Quote(context.Background(), tokenAddr)
	assert.Error(t, err)
}

func TestToggleStar(t *testing.T) {
	svc := newService(t, memory.New(), &mockChain{}, nil)
	ctx := context.Background()

	on, err := svc.ToggleStar(ctx, userAddr, tokenAddr)
	require.NoError(t, err)
	assert.True(t, on)

	starred, err := svc.IsStarred(ctx, userAddr, strings.ToLower(tokenAddr))
	require.NoError(t, err)
	assert.True(t, starred)

	list, err := svc.Starred(ctx, userAddr)
	require.NoError(t, err)
	assert.Equal(t, []string{strings.ToLower(tokenAddr)}, list)

	on, err = svc.ToggleStar(ctx, userAddr, tokenAddr)
	require.NoError(t, err)
	assert.False(t, on)

	list, err = svc.Starred(ctx, userAddr)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestAddComment(t *testing.T) {
	store := memory.New()
	c := &mockChain{}
	bus := events.NewBus(zap.NewNop(), 4)
	defer bus.Shutdown(context.Background())

	posted := make(chan events.CommentPostedEvent, 1)
	bus.SubscribeFunc(events.CommentPosted, func(_ context.Context, e events.Event) error {
		posted <- e.(events.CommentPostedEvent)
		return nil
	})

	svc := newService(t, store, c, bus)
	ctx := context.Background()

	_, err := svc.Create(ctx, &models.Token{Name: "A", Symbol: "A", ContractAddress: tokenAddr, Creator: creatorAddr})
	require.NoError(t, err)

	c.On("ConfirmFee", mock.Anything, "0xfee", userAddr, strings.ToLower(tokenAddr), chain.CommentFee).Return(nil).Once()

	comment, err := svc.AddComment(ctx, tokenAddr, userAddr, "  to the moon  ", "0xfee")
	require.NoError(t, err)
	assert.Equal(t, "to the moon", comment.Body)

	comments, err := svc.Comments(ctx, tokenAddr)
	require.NoError(t, err)
	require.Len(t, comments, 1)

	select {
	case e := <-posted:
		assert.Equal(t, userAddr, e.Author)
	case <-time.After(time.Second):
		t.Fatal("comment event not published")
	}
	c.AssertExpectations(t)
}

func TestAddComment_Rejections(t *testing.T) {
	store := memory.New()
	c := &mockChain{}
	svc := newService(t, store, c, nil)
	ctx := context.Background()

	_, err := svc.AddComment(ctx, tokenAddr, userAddr, "   ", "0xfee")
	assert.ErrorIs(t, err, ErrEmptyComment)

	_, err = svc.AddComment(ctx, tokenAddr, userAddr, "hello", "0xfee")
	assert.ErrorIs(t, err, ErrTokenNotFound)

	_, err = svc.Create(ctx, &models.Token{Name: "A", Symbol: "A", ContractAddress: tokenAddr, Creator: creatorAddr})
	require.NoError(t, err)

	c.On("ConfirmFee", mock.Anything, "0xunpaid", userAddr, strings.ToLower(tokenAddr), chain.CommentFee).Return(chain.ErrFeeNotPaid)
	_, err = svc.AddComment(ctx, tokenAddr, userAddr, "hello", "0xunpaid")
	assert.ErrorIs(t, err, chain.ErrFeeNotPaid)

	comments, err := svc.Comments(ctx, tokenAddr)
	require.NoError(t, err)
	assert.Empty(t, comments)
}

func TestAddComment_FeeUsedOnce(t *testing.T) {
	store := memory.New()
	c := &mockChain{}
	svc := newService(t, store, c, nil)
	ctx := context.Background()

	for _, addr := range []string{tokenAddr, tokenAddr2} {
		_, err := svc.Create(ctx, &models.Token{Name: "A", Symbol: "A", ContractAddress: addr, Creator: creatorAddr})
		require.NoError(t, err)
	}
	c.On("ConfirmFee", mock.Anything, "0xfee", userAddr, strings.ToLower(tokenAddr), chain.CommentFee).Return(nil).Once()

	_, err := svc.AddComment(ctx, tokenAddr, userAddr, "first", "0xfee")
	require.NoError(t, err)

	for i := 0; i < 4; i++ {
		_, err = svc.AddComment(ctx, tokenAddr, userAddr, "again", "0xFEE")
		assert.ErrorIs(t, err, chain.ErrFeeAlreadyUsed)
	}
	_, err = svc.AddComment(ctx, tokenAddr2, userAddr, "elsewhere", "0xfee")
	assert.ErrorIs(t, err, chain.ErrFeeAlreadyUsed)

	comments, err := svc.Comments(ctx, tokenAddr)
	require.NoError(t, err)
	assert.Len(t, comments, 1)
	c.AssertExpectations(t)
}

func TestAddComment_ReleasesFeeOnFailure(t *testing.T) {
	store := memory.New()
	c := &mockChain{}
	svc := newService(t, store, c, nil)
	ctx := context.Background()

	_, err := svc.Create(ctx, &models.Token{Name: "A", Symbol: "A", ContractAddress: tokenAddr, Creator: creatorAddr})
	require.NoError(t, err)

	c.On("ConfirmFee", mock.Anything, "0xslow", userAddr, strings.ToLower(tokenAddr), chain.CommentFee).Return(chain.ErrTxPending).Once()
	_, err = svc.AddComment(ctx, tokenAddr, userAddr, "hello", "0xslow")
	require.ErrorIs(t, err, chain.ErrTxPending)

	c.On("ConfirmFee", mock.Anything, "0xslow", userAddr, strings.ToLower(tokenAddr), chain.CommentFee).Return(nil).Once()
	_, err = svc.AddComment(ctx, tokenAddr, userAddr, "hello", "0xslow")
	require.NoError(t, err)
	c.AssertExpectations(t)
}

// delayedStore hides tokens for the first few reads.
type delayedStore struct {
	storage.TokenStore
	hidden int
}

func (d *delayedStore) GetToken(ctx context.Context, addr string) (*models.Token, error) {
	if d.hidden > 0 {
		d.hidden--
		return nil, storage.ErrNotFound
	}
	return d.TokenStore.GetToken(ctx, addr)
}

func TestWaitForToken(t *testing.T) {
	ctx := context.Background()

	t.Run("appears after lag", func(t *testing.T) {
		store := &delayedStore{TokenStore: memory.New(), hidden: 2}
		svc := newService(t, store, &mockChain{}, nil)
		_, err := svc.Create(ctx, &models.Token{Name: "A", Symbol: "A", ContractAddress: tokenAddr, Creator: creatorAddr})
		require.NoError(t, err)

		tok, err := svc.WaitForToken(ctx, tokenAddr)
		require.NoError(t, err)
		assert.Equal(t, "A", tok.Symbol)
	})

	t.Run("never appears", func(t *testing.T) {
		svc := newService(t, memory.New(), &mockChain{}, nil)
		_, err := svc.WaitForToken(ctx, tokenAddr)
		assert.ErrorIs(t, err, retry.ErrNotReady)
	})
}

func TestSeedFromManifest(t *testing.T) {
	manifest := `
tokens:
  - name: Pepe
    symbol: pepe
    contract_address: "0x00000000000000000000000000000000000000aa"
    creator: "0x00000000000000000000000000000000000000bb"
    intuition_link: https://portal.intuition.systems/pepe
    is_alpha: true
  - name: Doge
    symbol: doge
    contract_address: "0x00000000000000000000000000000000000000ac"
    creator: "0x00000000000000000000000000000000000000bb"
    current_supply: 1000
`
	m, err := ReadManifest(strings.NewReader(manifest))
	require.NoError(t, err)
	require.Len(t, m.Tokens, 2)

	svc := newService(t, memory.New(), &mockChain{}, nil)
	res, err := svc.Seed(context.Background(), m)
	require.NoError(t, err)
	assert.Equal(t, SeedResult{Created: 2}, res)

	// Seeding again skips everything.
	m, err = ReadManifest(strings.NewReader(manifest))
	require.NoError(t, err)
	res, err = svc.Seed(context.Background(), m)
	require.NoError(t, err)
	assert.Equal(t, SeedResult{Skipped: 2}, res)

	tok, err := svc.Get(context.Background(), "0x00000000000000000000000000000000000000aa")
	require.NoError(t, err)
	assert.True(t, tok.IsAlpha)
	assert.Equal(t, "PEPE", tok.Symbol)
}

func TestReadManifest_UnknownField(t *testing.T) {
	_, err := ReadManifest(strings.NewReader("tokens:\n  - nmae: typo\n"))
	assert.Error(t, err)
}
