// Command safar-sync is the operator tool for the offline progress sync layer.
// It migrates the remote and on-device schemas, and inspects or drains a
// user's pending sync queue.
package main

import (
	"context"
	"os"

	"github.com/Skyrin/go-safar/config"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	configPath string
	cfg        *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "safar-sync",
	Short: "Operate the Safar offline progress sync",
	Long: `Operate the Safar offline progress sync.

Settings come from the environment (DBHOST, DBPORT, DBUSER, DBPASS, DBNAME,
SSLMODE, DBSEARCHPATH, SAFAR_LOCAL_STORE, KAFKA_URL, KAFKA_REGION,
KAFKA_TOPIC, DEV, LOG_LEVEL) and optionally a config file.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) (err error) {
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}

		setupLogger(cfg)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to a config file")
	rootCmd.AddCommand(migrateCmd, drainCmd, pendingCmd, versionCmd)
}

func setupLogger(c *config.Config) {
	if c.Dev {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	lvl, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil {
		log.Warn().Err(err).Msgf("invalid log level: %s", c.LogLevel)
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		log.Error().Err(err).Msg("safar-sync failed")
		os.Exit(1)
	}
}
