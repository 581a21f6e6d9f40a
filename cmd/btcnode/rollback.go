package main

import (
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/daglabs/btcnode/chainstore"
	"github.com/daglabs/btcnode/internal/logs"
)

// runRollback moves the main chain's tip back to an earlier height. It
// reuses chainstore.Reorganize directly: resolving the target height to its
// hash and reorganizing onto it disconnects everything above it, exactly
// what a rollback is.
func runRollback(cfg *rollbackConfig) error {
	store, err := chainstore.Open(filepath.Join(cfg.DataDir, "chain"))
	if err != nil {
		return errors.Wrap(err, "failed to open chain store")
	}
	defer store.Close()

	if cfg.Height >= store.BestBlock().Height {
		return errors.Errorf("rollback target height %d is not below the current tip height %d", cfg.Height, store.BestBlock().Height)
	}

	target, err := store.HashAtHeight(cfg.Height)
	if err != nil {
		return errors.Wrapf(err, "no known block at height %d", cfg.Height)
	}

	if _, err := store.Reorganize(target, nil); err != nil {
		return errors.Wrap(err, "failed to roll back")
	}

	logs.Server.Infof("rolled back to height %d (%s)", cfg.Height, target)
	return nil
}
