package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/walak/walak/internal/config"
	"github.com/walak/walak/internal/logging"
	"github.com/walak/walak/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the local store as an HTTP log store",
	Long: `Serves the local SQLite store over the JSON contract the remote source
expects, plus read-only view and stats endpoints under /api.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		s, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer s.Close()

		eng, err := newEngine(cfg)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		logging.Log.WithField("addr", cfg.ServerAddr).Info("log store listening")
		return server.New(s, eng, cfg.Months).Run(ctx, cfg.ServerAddr)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("listen", "", "HTTP listen address (default from server.addr)")
	if err := viper.BindPFlag(config.KeyServerAddr, serveCmd.Flags().Lookup("listen")); err != nil {
		panic(err)
	}
}
