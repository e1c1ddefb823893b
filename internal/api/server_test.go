// internal/api/server_test.go
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/memelaunch/launchpad/internal/admin"
	"github.com/memelaunch/launchpad/internal/chain"
	"github.com/memelaunch/launchpad/internal/curve"
	"github.com/memelaunch/launchpad/internal/events"
	"github.com/memelaunch/launchpad/internal/governance"
	"github.com/memelaunch/launchpad/internal/leaderboard"
	"github.com/memelaunch/launchpad/internal/points"
	"github.com/memelaunch/launchpad/internal/storage/memory"
	"github.com/memelaunch/launchpad/internal/storage/models"
	"github.com/memelaunch/launchpad/internal/tokens"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	adminAddr = "0x00000000000000000000000000000000000000ad"
	tokenAddr = "0x00000000000000000000000000000000000000aa"
	userAddr  = "0x00000000000000000000000000000000000000b1"
)

type fakeChain struct {
	supply   decimal.Decimal
	balances map[string]decimal.Decimal
	volumes  map[string]chain.Volume
	unpaid   map[string]bool
}

func (f *fakeChain) TokenInfo(context.Context, string) (*chain.TokenInfo, error) {
	return &chain.TokenInfo{CurrentSupply: f.supply}, nil
}

func (f *fakeChain) TokenBalance(_ context.Context, _, wallet string) (decimal.Decimal, error) {
	return f.balances[wallet], nil
}

func (f *fakeChain) UserVolume(_ context.Context, wallet string) (chain.Volume, error) {
	return f.volumes[wallet], nil
}

func (f *fakeChain) ConfirmFee(_ context.Context, txHash, _, _ string, _ decimal.Decimal) error {
	if f.unpaid[txHash] {
		return chain.ErrFeeNotPaid
	}
	return nil
}

type testServer struct {
	*httptest.Server
	store *memory.Store
	chain *fakeChain
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	log := zap.NewNop()
	store := memory.New()
	fc := &fakeChain{
		supply:   decimal.NewFromInt(350_000_000),
		balances: map[string]decimal.Decimal{},
		volumes:  map[string]chain.Volume{},
		unpaid:   map[string]bool{},
	}
	pricer := curve.MustPricer(curve.DefaultConfig())
	bus := events.Discard{}

	srv := NewServer(Services{
		Pricer:      pricer,
		Tokens:      tokens.NewService(store, pricer, fc, fc, bus, log),
		Governance:  governance.NewService(store, admin.Parse(adminAddr), fc, fc, bus, governance.DefaultPolicy(), log),
		Points:      points.NewService(store, fc, bus, log),
		Leaderboard: leaderboard.NewService(store, leaderboard.NewMemoryCache(), nil, bus, log),
	}, NewMetrics(), log)

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return &testServer{Server: ts, store: store, chain: fc}
}

func (ts *testServer) do(t *testing.T, method, path string, body interface{}) (int, []byte) {
	t.Helper()
	var rd io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, ts.URL+path, rd)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := ts.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	out, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, out
}

func decode[T any](t *testing.T, raw []byte) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(raw, &v), string(raw))
	return v
}

func TestHealthz(t *testing.T) {
	ts := newTestServer(t)
	status, body := ts.do(t, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"status":"ok"}`, string(body))
}

func TestCurveQuote(t *testing.T) {
	ts := newTestServer(t)

	status, body := ts.do(t, http.MethodGet, "/api/curve/quote?supply=350000000", nil)
	require.Equal(t, http.StatusOK, status)
	q := decode[curveQuoteResponse](t, body)
	assert.InDelta(t, 0.000206955, q.Price, 1e-12)
	assert.InDelta(t, 50.0, q.ProgressPercent, 1e-9)
	assert.InDelta(t, 700_000_000.0, q.CurveLimit, 1e-6)

	status, body = ts.do(t, http.MethodGet, "/api/curve/quote?supply=-10", nil)
	require.Equal(t, http.StatusOK, status)
	q = decode[curveQuoteResponse](t, body)
	assert.Equal(t, curve.DefaultInitialPrice, q.Price)
	assert.Zero(t, q.ProgressPercent)
	assert.Zero(t, q.MarketCap)

	status, _ = ts.do(t, http.MethodGet, "/api/curve/quote?supply=lots", nil)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestProposalValidity(t *testing.T) {
	ts := newTestServer(t)

	status, body := ts.do(t, http.MethodPost, "/api/proposals/validity", governance.Tally{YesVotes: 60, NoVotes: 40})
	require.Equal(t, http.StatusOK, status)
	v := decode[governance.Verdict](t, body)
	assert.True(t, v.IsValid)
	assert.Empty(t, v.Reasons)
	assert.Equal(t, uint64(100), v.TotalVoters)

	status, body = ts.do(t, http.MethodPost, "/api/proposals/validity", governance.Tally{YesVotes: 50, NoVotes: 50})
	require.Equal(t, http.StatusOK, status)
	v = decode[governance.Verdict](t, body)
	assert.False(t, v.IsValid)
	assert.True(t, v.IsTie)

	status, body = ts.do(t, http.MethodPost, "/api/proposals/validity", governance.Tally{YesVotes: 1 << 31, NoVotes: 1 << 31})
	require.Equal(t, http.StatusOK, status)
	v = decode[governance.Verdict](t, body)
	assert.True(t, v.IsTie)
	assert.Equal(t, uint64(1)<<32, v.TotalVoters)

	req, err := http.NewRequest(http.MethodPost, ts.URL+"/api/proposals/validity", strings.NewReader("{"))
	require.NoError(t, err)
	resp, err := ts.Client().Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestTokenLifecycle(t *testing.T) {
	ts := newTestServer(t)
	link := "https://portal.intuition.systems/atom/1"

	status, body := ts.do(t, http.MethodPost, "/api/tokens", map[string]interface{}{
		"name":             "Cat Coin",
		"symbol":           "cat",
		"creator":          userAddr,
		"contract_address": tokenAddr,
		"intuition_link":   link,
	})
	require.Equal(t, http.StatusCreated, status, string(body))
	created := decode[models.Token](t, body)
	assert.Equal(t, "CAT", created.Symbol)

	status, _ = ts.do(t, http.MethodPost, "/api/tokens", map[string]interface{}{
		"name":             "Dog Coin",
		"symbol":           "DOG",
		"creator":          userAddr,
		"contract_address": "0x00000000000000000000000000000000000000ab",
		"intuition_link":   link,
	})
	assert.Equal(t, http.StatusConflict, status)

	status, body = ts.do(t, http.MethodGet, "/api/tokens/link-exists?link="+link, nil)
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"exists":true}`, string(body))

	status, body = ts.do(t, http.MethodGet, "/api/tokens", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, decode[[]models.Token](t, body), 1)

	status, _ = ts.do(t, http.MethodGet, "/api/tokens/0x00000000000000000000000000000000000000ff", nil)
	assert.Equal(t, http.StatusNotFound, status)

	status, body = ts.do(t, http.MethodGet, "/api/tokens/"+tokenAddr+"/quote", nil)
	require.Equal(t, http.StatusOK, status)
	q := decode[tokens.Quote](t, body)
	assert.Equal(t, uint64(350_000_000), q.CurrentSupply)
	assert.InDelta(t, 50.0, q.ProgressPercent, 1e-9)

	status, body = ts.do(t, http.MethodPost, "/api/tokens/"+tokenAddr+"/star", starRequest{UserAddress: userAddr})
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"starred":true}`, string(body))

	status, body = ts.do(t, http.MethodGet, "/api/users/"+userAddr+"/stars", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, []string{tokenAddr}, decode[[]string](t, body))

	status, _ = ts.do(t, http.MethodPost, "/api/tokens/"+tokenAddr+"/star", starRequest{})
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestComments(t *testing.T) {
	ts := newTestServer(t)
	_, err := tokens.NewService(ts.store, curve.MustPricer(curve.DefaultConfig()), nil, nil, nil, zap.NewNop()).
		Create(context.Background(), &models.Token{Name: "Cat", Symbol: "CAT", Creator: userAddr, ContractAddress: tokenAddr})
	require.NoError(t, err)

	status, body := ts.do(t, http.MethodPost, "/api/tokens/"+tokenAddr+"/comments", commentRequest{
		Author: userAddr, Body: "gm", TxHash: "0xpaid",
	})
	require.Equal(t, http.StatusCreated, status, string(body))

	ts.chain.unpaid["0xunpaid"] = true
	status, _ = ts.do(t, http.MethodPost, "/api/tokens/"+tokenAddr+"/comments", commentRequest{
		Author: userAddr, Body: "gm again", TxHash: "0xunpaid",
	})
	assert.Equal(t, http.StatusPaymentRequired, status)

	status, _ = ts.do(t, http.MethodPost, "/api/tokens/"+tokenAddr+"/comments", commentRequest{
		Author: userAddr, Body: "gm twice", TxHash: "0xPAID",
	})
	assert.Equal(t, http.StatusConflict, status, "fee tx already paid for a comment")

	status, _ = ts.do(t, http.MethodPost, "/api/tokens/"+tokenAddr+"/comments", commentRequest{Author: userAddr, Body: "  "})
	assert.Equal(t, http.StatusBadRequest, status)

	status, body = ts.do(t, http.MethodGet, "/api/tokens/"+tokenAddr+"/comments", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, decode[[]models.Comment](t, body), 1)
}

func TestProposalFlow(t *testing.T) {
	ts := newTestServer(t)

	status, _ := ts.do(t, http.MethodPost, "/api/proposals", governance.NewProposal{
		Title: "List on DEX", TokenAddress: tokenAddr, Creator: userAddr,
	})
	assert.Equal(t, http.StatusForbidden, status)

	status, body := ts.do(t, http.MethodPost, "/api/proposals", governance.NewProposal{
		Title: "List on DEX", TokenAddress: tokenAddr, Creator: adminAddr,
	})
	require.Equal(t, http.StatusCreated, status, string(body))
	p := decode[models.Proposal](t, body)
	base := "/api/proposals/" + p.ID.String()

	status, _ = ts.do(t, http.MethodPost, base+"/votes", governance.Ballot{Voter: userAddr, Choice: "yes", TxHash: "0x1"})
	assert.Equal(t, http.StatusForbidden, status, "voter holds no tokens")

	ts.chain.balances[userAddr] = decimal.NewFromInt(250_000)
	status, _ = ts.do(t, http.MethodPost, base+"/whitelist", adminRequest{AdminAddress: adminAddr, WalletAddress: userAddr})
	require.Equal(t, http.StatusNoContent, status)

	status, body = ts.do(t, http.MethodPost, base+"/votes", governance.Ballot{Voter: userAddr, Choice: "yes", TxHash: "0x1"})
	require.Equal(t, http.StatusCreated, status, string(body))
	vote := decode[models.Vote](t, body)
	assert.Equal(t, governance.CreatorVotingPower, vote.VotingPower)

	status, _ = ts.do(t, http.MethodPost, base+"/votes", governance.Ballot{Voter: userAddr, Choice: "no", TxHash: "0x2"})
	assert.Equal(t, http.StatusConflict, status)

	status, _ = ts.do(t, http.MethodPost, base+"/votes", governance.Ballot{Voter: userAddr, Choice: "maybe"})
	assert.Equal(t, http.StatusBadRequest, status)

	status, body = ts.do(t, http.MethodGet, base+"/votes", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, decode[[]models.Vote](t, body), 1)

	status, body = ts.do(t, http.MethodGet, base+"/verdict", nil)
	require.Equal(t, http.StatusOK, status)
	v := decode[governance.Verdict](t, body)
	assert.False(t, v.IsValid)
	assert.Equal(t, []string{"Only 1 voters (minimum 100 required)"}, v.Reasons)

	status, _ = ts.do(t, http.MethodPost, base+"/close", adminRequest{AdminAddress: userAddr})
	assert.Equal(t, http.StatusForbidden, status)

	status, _ = ts.do(t, http.MethodPost, base+"/close", adminRequest{AdminAddress: adminAddr})
	require.Equal(t, http.StatusOK, status)

	status, body = ts.do(t, http.MethodGet, base, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, models.ProposalClosed, decode[models.Proposal](t, body).Status)

	status, _ = ts.do(t, http.MethodGet, "/api/proposals/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = ts.do(t, http.MethodDelete, base+"/whitelist/"+userAddr, adminRequest{AdminAddress: adminAddr})
	assert.Equal(t, http.StatusNoContent, status)

	status, body = ts.do(t, http.MethodGet, base+"/whitelist", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Empty(t, decode[[]models.WhitelistEntry](t, body))
}

func TestLeaderboardAndPoints(t *testing.T) {
	ts := newTestServer(t)
	ts.chain.volumes[userAddr] = chain.Volume{Buy: decimal.NewFromInt(100)}

	status, body := ts.do(t, http.MethodGet, "/api/points/"+userAddr, nil)
	require.Equal(t, http.StatusOK, status)
	rec := decode[models.UserPoints](t, body)
	assert.InDelta(t, points.Calculate(100), rec.Points, 1e-9)

	status, body = ts.do(t, http.MethodPost, "/api/leaderboard/refresh", nil)
	require.Equal(t, http.StatusOK, status)
	res := decode[leaderboard.RefreshResult](t, body)
	assert.Equal(t, 1, res.TopTraders)
	assert.Equal(t, 1, res.MostActive)

	status, body = ts.do(t, http.MethodGet, "/api/leaderboard/top_traders", nil)
	require.Equal(t, http.StatusOK, status)
	snap := decode[leaderboard.Snapshot](t, body)
	traders := decode[[]leaderboard.Trader](t, snap.Data)
	require.Len(t, traders, 1)
	assert.Equal(t, userAddr, traders[0].Address)

	status, _ = ts.do(t, http.MethodGet, "/api/leaderboard/whales", nil)
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = ts.do(t, http.MethodGet, "/api/leaderboard/chain", nil)
	assert.Equal(t, http.StatusInternalServerError, status, "no chain source configured")
}

func TestMetricsEndpoint(t *testing.T) {
	ts := newTestServer(t)
	ts.do(t, http.MethodGet, "/healthz", nil)

	status, body := ts.do(t, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(body), `launchpad_http_requests_total{method="GET",route="/healthz",status="200"} 1`)
}

func TestMetricsCountEvents(t *testing.T) {
	m := NewMetrics()
	bus := events.NewBus(zap.NewNop(), 8)
	m.Subscribe(bus)

	require.NoError(t, bus.PublishSync(context.Background(), events.TokenCreatedEvent{BaseEvent: events.NewBase(events.TokenCreated)}))
	require.NoError(t, bus.Shutdown(context.Background()))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, rec.Body.String(), `launchpad_events_total{type="token.created"} 1`)
}
