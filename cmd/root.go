package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/walak/walak/internal/config"
	"github.com/walak/walak/internal/logging"
)

var cfgFile string

// rootCmd opens the terminal UI when called without a subcommand.
var rootCmd = &cobra.Command{
	Use:   "walak",
	Short: "A terminal logbook for the blocks of time that make up your weeks.",
	Long: `walak records named blocks (a yoga class, a call with dad, a date night)
in a fixed set of categories and shows them by day, week, month or year.

Logs live in a local SQLite store, or behind any HTTP log store that speaks
the same JSON contract (see "walak serve").`,
	CompletionOptions: cobra.CompletionOptions{
		DisableDefaultCmd: true,
	},
	SilenceUsage: true,
	RunE:         runTUI,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.walak.yaml)")

	rootCmd.PersistentFlags().StringP("loglevel", "l", "info", "Set log level. Available: debug, info, warn, error, fatal")
	rootCmd.PersistentFlags().String("source", "", "Where logs live: local or remote")
	rootCmd.PersistentFlags().String("db", "", "Path of the local SQLite store")
	rootCmd.PersistentFlags().String("api", "", "Base URL of the remote log store")

	bindFlag(config.KeyLogLevel, "loglevel")
	bindFlag(config.KeySource, "source")
	bindFlag(config.KeyStorePath, "db")
	bindFlag(config.KeyAPIURL, "api")
}

func bindFlag(key, flag string) {
	if err := viper.BindPFlag(key, rootCmd.PersistentFlags().Lookup(flag)); err != nil {
		panic(err)
	}
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	config.SetDefaults(viper.GetViper())

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := homedir.Dir()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		viper.AddConfigPath(home)
		viper.SetConfigName(".walak")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("walak")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// Config file not found; create it with defaults.
			home, _ := homedir.Dir()
			configPath := filepath.Join(home, ".walak.yaml")
			if err := viper.SafeWriteConfigAs(configPath); err != nil {
				logging.Log.Debugf("not writing default config: %v", err)
			}
		} else {
			fmt.Fprintf(os.Stderr, "error reading config %s: %v\n", viper.ConfigFileUsed(), err)
		}
	}

	if err := logging.SetLevel(viper.GetString(config.KeyLogLevel)); err != nil {
		fmt.Fprintln(os.Stderr, err)
	}
}
