// internal/chain/provider.go
package chain

import (
	"context"

	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/memelaunch/launchpad/internal/wallet"
	"go.uber.org/zap"
)

// Provider is the shared RPC connection of the process.
type Provider = wallet.Manager[*ethclient.Client]

// NewProvider returns a lazily dialled connection to rpcURL that refuses
// nodes serving a chain other than chainID.
func NewProvider(rpcURL string, chainID int64, logger *zap.Logger) *Provider {
	return wallet.NewManager(func(ctx context.Context) (*ethclient.Client, error) {
		return ethclient.DialContext(ctx, rpcURL)
	}, chainID, logger)
}

// FromProvider adapts p to Connector.
func FromProvider(p *Provider) Connector {
	return ConnectorFunc(func(ctx context.Context) (Backend, error) {
		c, err := p.Connect(ctx)
		if err != nil {
			return nil, err
		}
		return c, nil
	})
}
