package status

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"vectorload/config"
	"vectorload/credential"
	"vectorload/search"
)

// Status reports how many documents the configured index currently holds.
func Status(ctx *cli.Context) error {
	_ = godotenv.Overload()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if missing := cfg.MissingRequired(); missing != "" {
		fmt.Printf("Error: %s environment variable is not set\n", missing)
		return nil
	}

	cred, err := credential.Resolve(cfg.TenantID)
	if err != nil {
		return err
	}

	backend, err := search.NewBackend(ctx.Context, cfg, cred)
	if err != nil {
		return err
	}
	manager := search.NewManager(backend, nil, cfg.IndexName, cfg.EmbedDimensions, cfg.EmbedDeployment)
	defer func() { _ = manager.Close() }()

	count, err := manager.DocumentCount(ctx.Context)
	if err != nil {
		return fmt.Errorf("failed to count documents in index %s: %w", cfg.IndexName, err)
	}

	if count == 0 {
		fmt.Printf("Index %q is empty.\n", cfg.IndexName)
	} else {
		fmt.Printf("Index %q holds %d documents.\n", cfg.IndexName, count)
	}
	return nil
}
