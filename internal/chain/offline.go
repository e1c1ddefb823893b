// internal/chain/offline.go
package chain

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

// ErrOffline is returned by Offline for every call.
var ErrOffline = errors.New("chain access disabled")

// Offline stands in for Client when no RPC endpoint is configured.
type Offline struct{}

var (
	_ Reader      = Offline{}
	_ FeeVerifier = Offline{}
)

func (Offline) TokenInfo(context.Context, string) (*TokenInfo, error) { return nil, ErrOffline }

func (Offline) CurrentPrice(context.Context, string) (decimal.Decimal, error) {
	return decimal.Zero, ErrOffline
}

func (Offline) AllTokens(context.Context) ([]string, error) { return nil, ErrOffline }

func (Offline) TokenHolders(context.Context, string) ([]string, error) { return nil, ErrOffline }

func (Offline) UserVolume(context.Context, string) (Volume, error) { return Volume{}, ErrOffline }

func (Offline) TokenBalance(context.Context, string, string) (decimal.Decimal, error) {
	return decimal.Zero, ErrOffline
}

func (Offline) ConfirmFee(context.Context, string, string, string, decimal.Decimal) error {
	return ErrOffline
}
