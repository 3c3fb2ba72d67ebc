// Command contract publishes consumer pacts to a pact broker and verifies a
// running user provider against them.
//
//	contract publish [--dir DIR] [--version V] [--broker-url URL]
//	contract verify  [--provider-base-url URL] [--pact-file F]... [--provider-version V] [--publish]
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"user-contract-service/internal/config"
	"user-contract-service/internal/contract/broker"
	"user-contract-service/pkg/logger"

	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

const usage = `usage: contract <command> [flags]

commands:
  publish   publish every pact in PACT_DIR to the broker
  verify    verify the provider at PACT_PROVIDER_BASE_URL against its pacts
`

func main() {
	ctx := context.Background()
	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, out io.Writer) error {
	if len(args) == 0 {
		fmt.Fprint(out, usage)
		return errors.New("missing command")
	}

	switch args[0] {
	case "publish":
		return runPublish(ctx, args[1:], out)
	case "verify":
		return runVerify(ctx, args[1:], out)
	case "help", "-h", "--help":
		fmt.Fprint(out, usage)
		return nil
	default:
		fmt.Fprint(out, usage)
		return fmt.Errorf("unknown command %q", args[0])
	}
}

// setup loads configuration with fs's flags bound to their keys and builds
// the logger and broker client.
func setup(fs *pflag.FlagSet, bindings map[string]string) (*config.Config, *zap.Logger, error) {
	opts := []config.Option{config.WithFlag("PACT_BROKER_URL", fs.Lookup("broker-url"))}
	for flag, key := range bindings {
		opts = append(opts, config.WithFlag(key, fs.Lookup(flag)))
	}

	cfg, err := config.LoadConfig(configPath(), opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	output := cfg.Logger.OutputPath
	if output == "" || output == "stdout" {
		output = "stderr"
	}
	log, err := logger.NewWithConfig(logger.Config{
		Level:          cfg.Logger.Level,
		Format:         cfg.Logger.Format,
		OutputPath:     output,
		ServiceName:    "contract",
		ServiceVersion: cfg.Logger.ServiceVersion,
		Environment:    cfg.App.Environment,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return cfg, log, nil
}

func newBroker(cfg *config.Config, log *zap.Logger) (*broker.Client, error) {
	if cfg.Pact.BrokerURL == "" {
		return nil, errors.New("PACT_BROKER_URL is not set")
	}
	return broker.NewClient(broker.Config{
		BaseURL:  cfg.Pact.BrokerURL,
		Username: cfg.Pact.BrokerUsername,
		Password: cfg.Pact.BrokerPassword,
	}, log)
}

func configPath() string {
	if path := os.Getenv("CONFIG_PATH"); path != "" {
		return path
	}
	return "."
}
