// internal/tokens/manifest.go
package tokens

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/memelaunch/launchpad/internal/storage/models"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Manifest is a YAML list of tokens to preload into the catalogue.
//
//	tokens:
//	  - name: Pepe
//	    symbol: PEPE
//	    contract_address: "0x..."
//	    creator: "0x..."
//	    intuition_link: https://...
type Manifest struct {
	Tokens []models.Token `yaml:"tokens"`
}

// ReadManifest decodes a manifest, rejecting unknown keys.
func ReadManifest(r io.Reader) (*Manifest, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var m Manifest
	if err := dec.Decode(&m); err != nil {
		if errors.Is(err, io.EOF) {
			return &m, nil
		}
		return nil, fmt.Errorf("decode manifest: %w", err)
	}
	return &m, nil
}

// LoadManifest reads a manifest file.
func LoadManifest(path string) (*Manifest, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open manifest: %w", err)
	}
	defer f.Close()
	return ReadManifest(f)
}

// SeedResult counts what Seed did.
type SeedResult struct {
	Created int
	Skipped int
}

// Seed lists every manifest token. Tokens that are already listed or whose
// link is taken are skipped; any other failure aborts.
func (s *Service) Seed(ctx context.Context, m *Manifest) (SeedResult, error) {
	var res SeedResult
	for i := range m.Tokens {
		t := m.Tokens[i]
		_, err := s.Create(ctx, &t)
		switch {
		case err == nil:
			res.Created++
		case errors.Is(err, ErrTokenExists), errors.Is(err, ErrLinkExists):
			s.logger.Info("Skipping seeded token",
				zap.String("symbol", t.Symbol),
				zap.Error(err))
			res.Skipped++
		default:
			return res, fmt.Errorf("seed token %d (%s): %w", i, t.Symbol, err)
		}
	}
	return res, nil
}
