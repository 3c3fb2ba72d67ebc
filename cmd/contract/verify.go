package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"user-contract-service/internal/adapter/gin/router"
	"user-contract-service/internal/config"
	"user-contract-service/internal/contract"
	"user-contract-service/internal/contract/broker"
	"user-contract-service/internal/pactfixture"

	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

func runVerify(ctx context.Context, args []string, out io.Writer) error {
	fs := pflag.NewFlagSet("verify", pflag.ContinueOnError)
	fs.String("provider-base-url", "", "base URL of the running provider (PACT_PROVIDER_BASE_URL)")
	fs.String("provider-version", "", "provider application version (PACT_PROVIDER_VERSION)")
	fs.Bool("publish", false, "publish verification results to the broker (PACT_PUBLISH_VERIFICATION)")
	fs.String("broker-url", "", "pact broker URL (PACT_BROKER_URL)")
	pactFiles := fs.StringSlice("pact-file", nil, "verify these pact files instead of fetching from the broker")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, log, err := setup(fs, map[string]string{
		"provider-base-url": "PACT_PROVIDER_BASE_URL",
		"provider-version":  "PACT_PROVIDER_VERSION",
		"publish":           "PACT_PUBLISH_VERIFICATION",
	})
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	docs, bc, err := loadPacts(ctx, cfg, log, *pactFiles)
	if err != nil {
		return err
	}
	if len(docs) == 0 {
		return fmt.Errorf("no pacts found for %s", pactfixture.ProviderName)
	}

	baseURL := strings.TrimRight(cfg.Pact.ProviderBaseURL, "/")
	verifier := contract.NewVerifier(log)

	var failures []error
	for _, doc := range docs {
		result, err := verifier.Verify(ctx, contract.VerifyRequest{
			Provider:       pactfixture.ProviderName,
			Target:         contract.HTTPTarget{BaseURL: baseURL},
			Pacts:          []*contract.Pact{doc.Pact},
			StateChangeURL: baseURL + router.ProviderStatesPath,
		})
		if err != nil {
			return err
		}

		for _, ir := range result.Interactions {
			status := "OK"
			if !ir.Passed() {
				status = "FAILED"
			}
			fmt.Fprintf(out, "%s %s: %s\n", status, ir.Consumer, ir.Description)
		}
		if err := result.Err(); err != nil {
			failures = append(failures, err)
		}

		if cfg.Pact.PublishVerification && bc != nil && doc.VerificationResultsURL != "" {
			if err := bc.PublishVerificationResults(ctx, doc.VerificationResultsURL, broker.VerificationResults{
				Success:                    result.Passed(),
				ProviderApplicationVersion: cfg.Pact.ProviderVersion,
			}); err != nil {
				return fmt.Errorf("failed to publish verification results: %w", err)
			}
		}
	}

	return errors.Join(failures...)
}

// loadPacts reads the given files or, when none are given, fetches the
// provider's latest pacts from the broker. The broker client is nil for files.
func loadPacts(ctx context.Context, cfg *config.Config, log *zap.Logger, files []string) ([]*broker.PactDocument, *broker.Client, error) {
	if len(files) > 0 {
		docs := make([]*broker.PactDocument, 0, len(files))
		for _, f := range files {
			p, err := contract.ReadPactFile(f)
			if err != nil {
				return nil, nil, err
			}
			docs = append(docs, &broker.PactDocument{Pact: p})
		}
		return docs, nil, nil
	}

	bc, err := newBroker(cfg, log)
	if err != nil {
		return nil, nil, err
	}
	docs, err := bc.LatestPactsForProvider(ctx, pactfixture.ProviderName)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to fetch pacts: %w", err)
	}
	return docs, bc, nil
}
