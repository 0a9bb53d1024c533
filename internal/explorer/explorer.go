// Package explorer implements the unified client against third-party block
// explorer backends. Every adapter normalizes its backend's wire format into
// the canonical records of internal/models, so callers can swap backends
// without caring which one answers.
package explorer

import (
	"fmt"
	"strings"

	"github.com/utxokit/utxokit/internal/models"
	"github.com/utxokit/utxokit/pkg/logger"
)

// NewProvider constructs the adapter named in the config.
func NewProvider(name string, cfg models.ProviderConfig, log *logger.Logger) (models.Provider, error) {
	switch name {
	case mattercloudName:
		return NewMatterCloud(cfg, log)
	case esploraName:
		return NewEsplora(cfg, log)
	default:
		return nil, fmt.Errorf("unknown provider %q", name)
	}
}

// resolveEndpoint applies the shared construction contract: default the
// network, derive the canonical base URL when none is given, and reject a
// base URL that belongs to the other network.
func resolveEndpoint(cfg models.ProviderConfig, mainnetURL, testnetURL string) (models.Network, string, error) {
	network := cfg.Network
	if network == "" {
		network = models.DefaultNetwork
	}
	if !network.Valid() {
		return "", "", models.NewInvalidArgument("unknown network %q", network)
	}

	canonical := mainnetURL
	other := testnetURL
	if network == models.Testnet {
		canonical, other = testnetURL, mainnetURL
	}

	if cfg.BaseURL == "" {
		return network, canonical, nil
	}

	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == other {
		return "", "", models.NewInvalidArgument("base URL %s contradicts network %s", baseURL, network)
	}
	return network, baseURL, nil
}
