package explorer

import (
	"context"

	"github.com/btcsuite/btcd/btcutil"
	"golang.org/x/sync/errgroup"

	"github.com/utxokit/utxokit/internal/models"
)

// fanOut resolves the unspent outputs of many addresses through a
// single-address fetch function, one concurrent request per address.
// The aggregation is fail-fast: the first failing sub-request cancels the
// rest and the whole call fails with no partial results, so a caller
// computing a balance never silently undercounts.
func fanOut(ctx context.Context, addrs []btcutil.Address, fetch func(ctx context.Context, addr btcutil.Address) ([]models.UnspentOutput, error)) ([]models.UnspentOutput, error) {
	g, ctx := errgroup.WithContext(ctx)
	results := make([][]models.UnspentOutput, len(addrs))
	for i, addr := range addrs {
		i, addr := i, addr
		g.Go(func() error {
			outs, err := fetch(ctx, addr)
			if err != nil {
				return err
			}
			results[i] = outs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return flatten(results...), nil
}

// flatten merges per-source output lists into one, collapsing duplicate
// (txid, vout) pairs and keeping the first observed record.
func flatten(lists ...[]models.UnspentOutput) []models.UnspentOutput {
	seen := make(map[string]struct{})
	merged := make([]models.UnspentOutput, 0)
	for _, list := range lists {
		for _, out := range list {
			key := out.Outpoint()
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			merged = append(merged, out)
		}
	}
	return merged
}

// checkAddresses enforces the shared GetUnspentOutputs precondition: a
// non-empty list with every address on the adapter's network.
func checkAddresses(addrs []btcutil.Address, network models.Network) error {
	if len(addrs) == 0 {
		return models.NewInvalidArgument("address list cannot be empty")
	}
	for _, addr := range addrs {
		if addr == nil {
			return models.NewInvalidArgument("address cannot be nil")
		}
		if !addr.IsForNet(network.Params()) {
			return models.NewInvalidArgument("address %s is not a %s address", addr.EncodeAddress(), network)
		}
	}
	return nil
}
