package main

import (
	"io"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"document-qa/internal/config"
)

const defaultConfigPath = "./configs/config.yaml"

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:           "docqa",
		Short:         "Ask questions about a fixed set of documents",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", defaultConfigPath, "path to config.yaml")

	loadConfig := func() (*config.Config, error) {
		// a missing .env is fine, the environment may already be set
		_ = godotenv.Load()
		cfg, err := config.LoadConfig(configPath)
		if err != nil {
			return nil, err
		}
		setupLogger(cfg.Log, os.Stderr)
		log.Debug().Interface("config", redact(cfg)).Msg("Loaded config")
		return cfg, nil
	}

	rootCmd.AddCommand(
		newIngestCmd(loadConfig),
		newAskCmd(loadConfig),
		newChatCmd(loadConfig),
		newServeCmd(loadConfig),
		newBackupCmd(loadConfig),
	)

	setupLogger(config.LogConfig{Level: "info"}, os.Stderr)
	if err := rootCmd.Execute(); err != nil {
		log.Fatal().Err(err).Msg("docqa failed")
	}
}

func setupLogger(cfg config.LogConfig, out io.Writer) {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.JSON {
		zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
		log.Logger = zerolog.New(out).With().Timestamp().Caller().Logger()
		return
	}
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}).With().Caller().Logger()
}

// redact hides secrets before the config is logged
func redact(cfg *config.Config) config.Config {
	c := *cfg
	mask := func(s string) string {
		if s == "" {
			return ""
		}
		return "****"
	}
	c.EmbedLLM.Key = mask(c.EmbedLLM.Key)
	c.InferenceLLM.Key = mask(c.InferenceLLM.Key)
	c.Database.Password = mask(c.Database.Password)
	c.Database.DSN = mask(c.Database.DSN)
	c.RAG.EncryptionKey = mask(c.RAG.EncryptionKey)
	return c
}
