// Command consumer fetches one user from the user service and prints it as JSON.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"user-contract-service/internal/client"
	"user-contract-service/internal/config"
	"user-contract-service/pkg/logger"

	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, out io.Writer) error {
	fs := pflag.NewFlagSet("consumer", pflag.ContinueOnError)
	id := fs.Int64("id", 1, "id of the user to fetch")
	fs.String("base-url", "", "user service base URL (overrides USER_SERVICE_BASE_URL)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.LoadConfig(configPath(), config.WithFlag("USER_SERVICE_BASE_URL", fs.Lookup("base-url")))
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	log, err := newLogger(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	u, err := client.NewUserClient(cfg.Consumer.BaseURL, log).GetUserByID(ctx, *id)
	if err != nil {
		log.Error("failed to fetch user", zap.Int64("id", *id), zap.Error(err))
		return err
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(u)
}

// newLogger keeps stdout for the command's output.
func newLogger(cfg *config.Config) (*zap.Logger, error) {
	output := cfg.Logger.OutputPath
	if output == "" || output == "stdout" {
		output = "stderr"
	}
	return logger.NewWithConfig(logger.Config{
		Level:          cfg.Logger.Level,
		Format:         cfg.Logger.Format,
		OutputPath:     output,
		ServiceName:    "user-consumer",
		ServiceVersion: cfg.Logger.ServiceVersion,
		Environment:    cfg.App.Environment,
	})
}

func configPath() string {
	if path := os.Getenv("CONFIG_PATH"); path != "" {
		return path
	}
	return "."
}
