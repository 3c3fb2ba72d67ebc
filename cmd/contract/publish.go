package main

import (
	"context"
	"fmt"
	"io"

	"user-contract-service/internal/contract"

	"github.com/spf13/pflag"
)

func runPublish(ctx context.Context, args []string, out io.Writer) error {
	fs := pflag.NewFlagSet("publish", pflag.ContinueOnError)
	fs.String("dir", "", "directory holding pact files (PACT_DIR)")
	fs.String("version", "", "consumer application version (PACT_CONSUMER_VERSION)")
	fs.String("broker-url", "", "pact broker URL (PACT_BROKER_URL)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, log, err := setup(fs, map[string]string{
		"dir":     "PACT_DIR",
		"version": "PACT_CONSUMER_VERSION",
	})
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	pacts, err := contract.ReadPactDir(cfg.Pact.Dir)
	if err != nil {
		return err
	}
	if len(pacts) == 0 {
		return fmt.Errorf("no pact files in %s", cfg.Pact.Dir)
	}

	bc, err := newBroker(cfg, log)
	if err != nil {
		return err
	}

	for _, p := range pacts {
		if err := bc.PublishPact(ctx, p, cfg.Pact.ConsumerVersion); err != nil {
			return fmt.Errorf("failed to publish %s: %w", p.FileName(), err)
		}
		fmt.Fprintf(out, "published %s (version %s)\n", p.FileName(), cfg.Pact.ConsumerVersion)
	}
	return nil
}
