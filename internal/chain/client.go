// internal/chain/client.go
package chain

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	DefaultCallAttempts    = 3
	DefaultReceiptAttempts = 10
	DefaultReceiptDelay    = 2 * time.Second

	// feeMethod is the payable entry point that carries comment and vote fees.
	feeMethod = "addComment"
)

// TokenInfo is the contract's view of one launchpad token. Amounts are in
// whole units.
type TokenInfo struct {
	Name              string          `json:"name"`
	Symbol            string          `json:"symbol"`
	Metadata          string          `json:"metadata"`
	Creator           string          `json:"creator"`
	CreatorAllocation decimal.Decimal `json:"creator_allocation"`
	HeldTokens        decimal.Decimal `json:"held_tokens"`
	MaxSupply         decimal.Decimal `json:"max_supply"`
	CurrentSupply     decimal.Decimal `json:"current_supply"`
	VirtualTrust      decimal.Decimal `json:"virtual_trust"`
	VirtualTokens     decimal.Decimal `json:"virtual_tokens"`
	Completed         bool            `json:"completed"`
	CreationTime      time.Time       `json:"creation_time"`
}

// Volume is a wallet's lifetime trading volume in native units.
type Volume struct {
	Buy  decimal.Decimal `json:"buy_volume"`
	Sell decimal.Decimal `json:"sell_volume"`
}

// Total is buy plus sell volume.
func (v Volume) Total() decimal.Decimal {
	return v.Buy.Add(v.Sell)
}

// Reader is the read side of the launchpad contract.
type Reader interface {
	TokenInfo(ctx context.Context, token string) (*TokenInfo, error)
	CurrentPrice(ctx context.Context, token string) (decimal.Decimal, error)
	AllTokens(ctx context.Context) ([]string, error)
	TokenHolders(ctx context.Context, token string) ([]string, error)
	UserVolume(ctx context.Context, wallet string) (Volume, error)
	TokenBalance(ctx context.Context, token, wallet string) (decimal.Decimal, error)
}

// FeeVerifier checks that a wallet paid a fee to the contract.
type FeeVerifier interface {
	// ConfirmFee checks that txHash is a successful addComment call for
	// token, sent by payer with at least fee attached.
	ConfirmFee(ctx context.Context, txHash, payer, token string, fee decimal.Decimal) error
}

// Backend is the subset of an RPC client the launchpad needs.
type Backend interface {
	bind.ContractCaller
	TransactionByHash(ctx context.Context, hash common.Hash) (tx *types.Transaction, isPending bool, err error)
	TransactionReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error)
}

// Connector hands out a live Backend.
type Connector interface {
	Connect(ctx context.Context) (Backend, error)
}

// ConnectorFunc adapts a function to Connector.
type ConnectorFunc func(ctx context.Context) (Backend, error)

func (f ConnectorFunc) Connect(ctx context.Context) (Backend, error) { return f(ctx) }

// Static returns a Connector that always yields b.
func Static(b Backend) Connector {
	return ConnectorFunc(func(context.Context) (Backend, error) { return b, nil })
}

// Options tune the client.
type Options struct {
	ContractAddress string
	CallAttempts    uint
	ReceiptAttempts uint
	ReceiptDelay    time.Duration
}

// Client talks to the launchpad contract and to token contracts.
type Client struct {
	connector Connector
	contract  common.Address
	launchpad abi.ABI
	erc20     abi.ABI
	opts      Options
	logger    *zap.Logger
}

var (
	_ Reader      = (*Client)(nil)
	_ FeeVerifier = (*Client)(nil)
)

// NewClient parses the contract bindings and returns a client.
func NewClient(connector Connector, opts Options, logger *zap.Logger) (*Client, error) {
	if !common.IsHexAddress(opts.ContractAddress) {
		return nil, fmt.Errorf("%w: contract %q", ErrInvalidAddress, opts.ContractAddress)
	}
	if opts.CallAttempts == 0 {
		opts.CallAttempts = DefaultCallAttempts
	}
	if opts.ReceiptAttempts == 0 {
		opts.ReceiptAttempts = DefaultReceiptAttempts
	}
	if opts.ReceiptDelay <= 0 {
		opts.ReceiptDelay = DefaultReceiptDelay
	}

	launchpad, err := abi.JSON(strings.NewReader(launchpadABI))
	if err != nil {
		return nil, fmt.Errorf("parse launchpad abi: %w", err)
	}
	erc20, err := abi.JSON(strings.NewReader(erc20ABI))
	if err != nil {
		return nil, fmt.Errorf("parse erc20 abi: %w", err)
	}

	return &Client{
		connector: connector,
		contract:  common.HexToAddress(opts.ContractAddress),
		launchpad: launchpad,
		erc20:     erc20,
		opts:      opts,
		logger:    logger.Named("chain"),
	}, nil
}

// ContractAddress is the launchpad contract the client is bound to.
func (c *Client) ContractAddress() string {
	return strings.ToLower(c.contract.Hex())
}

func parseAddress(s string) (common.Address, error) {
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("%w: %q", ErrInvalidAddress, s)
	}
	return common.HexToAddress(s), nil
}

// call runs a view method with exponential backoff. A target without
// contract code fails immediately.
func (c *Client) call(ctx context.Context, target common.Address, parsed abi.ABI, method string, params ...interface{}) ([]interface{}, error) {
	backend, err := c.connector.Connect(ctx)
	if err != nil {
		return nil, newError(err, method, target.Hex())
	}
	contract := bind.NewBoundContract(target, parsed, backend, nil, nil)

	op := func() ([]interface{}, error) {
		var out []interface{}
		if err := contract.Call(&bind.CallOpts{Context: ctx}, &out, method, params...); err != nil {
			if errors.Is(err, bind.ErrNoCode) {
				return nil, backoff.Permanent(err)
			}
			return nil, err
		}
		return out, nil
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 200 * time.Millisecond
	b.MaxInterval = 2 * time.Second

	out, err := backoff.Retry(ctx, op,
		backoff.WithBackOff(b),
		backoff.WithMaxTries(c.opts.CallAttempts),
		backoff.WithNotify(func(err error, next time.Duration) {
			c.logger.Debug("Contract call failed, retrying",
				zap.String("method", method),
				zap.Duration("next", next),
				zap.Error(err))
		}),
	)
	if err != nil {
		return nil, newError(err, method, target.Hex())
	}
	return out, nil
}

func bigAt(out []interface{}, i int) (*big.Int, error) {
	if i >= len(out) {
		return nil, ErrUnexpectedOutput
	}
	v, ok := out[i].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("%w: output %d is %T", ErrUnexpectedOutput, i, out[i])
	}
	return v, nil
}

func addressesAt(out []interface{}, i int) ([]string, error) {
	if i >= len(out) {
		return nil, ErrUnexpectedOutput
	}
	addrs, ok := out[i].([]common.Address)
	if !ok {
		return nil, fmt.Errorf("%w: output %d is %T", ErrUnexpectedOutput, i, out[i])
	}
	res := make([]string, len(addrs))
	for j, a := range addrs {
		res[j] = strings.ToLower(a.Hex())
	}
	return res, nil
}

// TokenInfo reads the contract's record of token.
func (c *Client) TokenInfo(ctx context.Context, token string) (*TokenInfo, error) {
	addr, err := parseAddress(token)
	if err != nil {
		return nil, err
	}
	out, err := c.call(ctx, c.contract, c.launchpad, "getTokenInfo", addr)
	if err != nil {
		return nil, err
	}
	if len(out) != 12 {
		return nil, newError(fmt.Errorf("%w: %d outputs", ErrUnexpectedOutput, len(out)), "getTokenInfo", token)
	}

	info := &TokenInfo{}
	var ok bool
	if info.Name, ok = out[0].(string); !ok {
		return nil, newError(ErrUnexpectedOutput, "getTokenInfo", token)
	}
	if info.Symbol, ok = out[1].(string); !ok {
		return nil, newError(ErrUnexpectedOutput, "getTokenInfo", token)
	}
	if info.Metadata, ok = out[2].(string); !ok {
		return nil, newError(ErrUnexpectedOutput, "getTokenInfo", token)
	}
	creator, ok := out[3].(common.Address)
	if !ok {
		return nil, newError(ErrUnexpectedOutput, "getTokenInfo", token)
	}
	info.Creator = strings.ToLower(creator.Hex())

	amounts := []*decimal.Decimal{
		&info.CreatorAllocation, &info.HeldTokens, &info.MaxSupply,
		&info.CurrentSupply, &info.VirtualTrust, &info.VirtualTokens,
	}
	for i, dst := range amounts {
		v, err := bigAt(out, 4+i)
		if err != nil {
			return nil, newError(err, "getTokenInfo", token)
		}
		*dst = FromWei(v)
	}

	if info.Completed, ok = out[10].(bool); !ok {
		return nil, newError(ErrUnexpectedOutput, "getTokenInfo", token)
	}
	created, err := bigAt(out, 11)
	if err != nil {
		return nil, newError(err, "getTokenInfo", token)
	}
	info.CreationTime = time.Unix(created.Int64(), 0).UTC()

	return info, nil
}

// CurrentPrice is the contract's spot price of token in native units.
func (c *Client) CurrentPrice(ctx context.Context, token string) (decimal.Decimal, error) {
	addr, err := parseAddress(token)
	if err != nil {
		return decimal.Zero, err
	}
	out, err := c.call(ctx, c.contract, c.launchpad, "getCurrentPrice", addr)
	if err != nil {
		return decimal.Zero, err
	}
	v, err := bigAt(out, 0)
	if err != nil {
		return decimal.Zero, newError(err, "getCurrentPrice", token)
	}
	return FromWei(v), nil
}

// AllTokens lists every token deployed through the contract.
func (c *Client) AllTokens(ctx context.Context) ([]string, error) {
	out, err := c.call(ctx, c.contract, c.launchpad, "getAllTokens")
	if err != nil {
		return nil, err
	}
	tokens, err := addressesAt(out, 0)
	if err != nil {
		return nil, newError(err, "getAllTokens", c.contract.Hex())
	}
	return tokens, nil
}

// TokenHolders lists wallets that hold or held token.
func (c *Client) TokenHolders(ctx context.Context, token string) ([]string, error) {
	addr, err := parseAddress(token)
	if err != nil {
		return nil, err
	}
	out, err := c.call(ctx, c.contract, c.launchpad, "getTokenHolders", addr)
	if err != nil {
		return nil, err
	}
	holders, err := addressesAt(out, 0)
	if err != nil {
		return nil, newError(err, "getTokenHolders", token)
	}
	return holders, nil
}

// UserVolume reads wallet's lifetime buy and sell volume.
func (c *Client) UserVolume(ctx context.Context, wallet string) (Volume, error) {
	addr, err := parseAddress(wallet)
	if err != nil {
		return Volume{}, err
	}
	out, err := c.call(ctx, c.contract, c.launchpad, "getUserVolume", addr)
	if err != nil {
		return Volume{}, err
	}
	buy, err := bigAt(out, 0)
	if err != nil {
		return Volume{}, newError(err, "getUserVolume", wallet)
	}
	sell, err := bigAt(out, 1)
	if err != nil {
		return Volume{}, newError(err, "getUserVolume", wallet)
	}
	return Volume{Buy: FromWei(buy), Sell: FromWei(sell)}, nil
}

// TokenBalance reads wallet's balance of token in whole tokens.
func (c *Client) TokenBalance(ctx context.Context, token, wallet string) (decimal.Decimal, error) {
	tokenAddr, err := parseAddress(token)
	if err != nil {
		return decimal.Zero, err
	}
	walletAddr, err := parseAddress(wallet)
	if err != nil {
		return decimal.Zero, err
	}
	out, err := c.call(ctx, tokenAddr, c.erc20, "balanceOf", walletAddr)
	if err != nil {
		return decimal.Zero, err
	}
	v, err := bigAt(out, 0)
	if err != nil {
		return decimal.Zero, newError(err, "balanceOf", token)
	}
	return FromWei(v), nil
}

// ConfirmFee waits for txHash to be mined and checks that payer called
// addComment on the launchpad contract for token with at least fee attached.
func (c *Client) ConfirmFee(ctx context.Context, txHash, payer, token string, fee decimal.Decimal) error {
	raw, err := hexutil.Decode(txHash)
	if err != nil || len(raw) != common.HashLength {
		return fmt.Errorf("%w: %q", ErrInvalidTxHash, txHash)
	}
	payerAddr, err := parseAddress(payer)
	if err != nil {
		return err
	}
	tokenAddr, err := parseAddress(token)
	if err != nil {
		return err
	}
	hash := common.BytesToHash(raw)

	backend, err := c.connector.Connect(ctx)
	if err != nil {
		return newError(err, "eth_getTransactionReceipt", txHash)
	}

	receipt, err := backoff.Retry(ctx, func() (*types.Receipt, error) {
		r, err := backend.TransactionReceipt(ctx, hash)
		if errors.Is(err, ethereum.NotFound) {
			return nil, ErrTxPending
		}
		return r, err
	},
		backoff.WithBackOff(backoff.NewConstantBackOff(c.opts.ReceiptDelay)),
		backoff.WithMaxTries(c.opts.ReceiptAttempts),
	)
	if err != nil {
		return newError(err, "eth_getTransactionReceipt", txHash)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return newError(ErrTxFailed, "eth_getTransactionReceipt", txHash)
	}

	tx, _, err := backend.TransactionByHash(ctx, hash)
	if err != nil {
		return newError(err, "eth_getTransactionByHash", txHash)
	}
	if tx.To() == nil || *tx.To() != c.contract {
		return fmt.Errorf("%w: transaction %s is not addressed to the launchpad", ErrFeeNotPaid, txHash)
	}
	if err := c.checkFeeCall(tx.Data(), tokenAddr); err != nil {
		return fmt.Errorf("%w: transaction %s: %v", ErrFeeNotPaid, txHash, err)
	}
	paid := FromWei(tx.Value())
	if paid.LessThan(fee) {
		return fmt.Errorf("%w: paid %s, want %s", ErrFeeNotPaid, paid, fee)
	}

	sender, err := types.Sender(types.LatestSignerForChainID(tx.ChainId()), tx)
	if err != nil {
		return newError(err, "recover_sender", txHash)
	}
	if sender != payerAddr {
		return fmt.Errorf("%w: transaction %s sent by %s", ErrFeeNotPaid, txHash, strings.ToLower(sender.Hex()))
	}

	c.logger.Debug("Fee confirmed",
		zap.String("tx_hash", txHash),
		zap.String("payer", payer),
		zap.String("token", token),
		zap.String("paid", paid.String()))
	return nil
}

// checkFeeCall decodes data as an addComment call and matches its token.
func (c *Client) checkFeeCall(data []byte, token common.Address) error {
	if len(data) < 4 {
		return errors.New("no contract call")
	}
	method, err := c.launchpad.MethodById(data[:4])
	if err != nil || method.Name != feeMethod {
		return fmt.Errorf("not a %s call", feeMethod)
	}
	args, err := method.Inputs.Unpack(data[4:])
	if err != nil || len(args) == 0 {
		return fmt.Errorf("malformed %s call", feeMethod)
	}
	got, ok := args[0].(common.Address)
	if !ok || got != token {
		return fmt.Errorf("fee paid for another token")
	}
	return nil
}
