package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/walak/walak/internal/logging"
	"github.com/walak/walak/internal/remote"
	"github.com/walak/walak/internal/store"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Pull every log from the remote store into the local one",
	Long: `Replaces the local collection with the remote one. Remote logs that fail
validation are skipped and counted. Needs api.url (or --api).`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		client, err := newRemote(cfg)
		if err != nil {
			return err
		}
		s, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer s.Close()

		res, err := pull(cmd.Context(), client, s)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "synced %d logs from %s (%d skipped, %d before)\n",
			res.Fetched-res.Skipped, cfg.APIURL, res.Skipped, res.Before)
		return nil
	},
}

type pullResult struct {
	Before  int
	Fetched int
	Skipped int
}

// pull fetches the remote collection while counting the local one, then
// swaps the local collection in a single transaction.
func pull(ctx context.Context, client *remote.Client, s *store.Store) (pullResult, error) {
	var res pullResult
	var logs []store.Log

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		logs, err = client.ListLogs(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		res.Before, err = s.CountLogs(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return pullResult{}, fmt.Errorf("sync: %w", err)
	}

	res.Fetched = len(logs)
	skipped, err := s.ReplaceLogs(ctx, logs)
	if err != nil {
		return pullResult{}, fmt.Errorf("sync: %w", err)
	}
	res.Skipped = skipped
	logging.Log.WithField("fetched", res.Fetched).WithField("skipped", skipped).Info("sync done")
	return res, nil
}

func init() {
	rootCmd.AddCommand(syncCmd)
}
