package query

import (
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"vectorload/config"
	"vectorload/credential"
	"vectorload/embedding"
	"vectorload/search"
)

const defaultResultCount = 5

// Query embeds the given text with the configured model deployment and runs
// a nearest-neighbor search against the index.
func Query(ctx *cli.Context) error {
	_ = godotenv.Overload()

	userQuery := strings.Join(ctx.Args().Slice(), " ")
	if userQuery == "" {
		return fmt.Errorf("usage: query <text>")
	}

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

	inferenceEndpoint, err := config.InferenceEndpoint(cfg.ProjectEndpoint)
	if err != nil {
		return err
	}
	embedClient := embedding.NewClient(inferenceEndpoint, cred.Transport(embedding.Scope), cfg.EmbedDeployment)
	defer func() { _ = embedClient.Close() }()

	backend, err := search.NewBackend(ctx.Context, cfg, cred)
	if err != nil {
		return err
	}
	manager := search.NewManager(backend, embedClient, cfg.IndexName, cfg.EmbedDimensions, cfg.EmbedDeployment)
	defer func() { _ = manager.Close() }()

	documents, err := manager.Search(ctx.Context, userQuery, defaultResultCount)
	if err != nil {
		return fmt.Errorf("failed to query index %s: %w", cfg.IndexName, err)
	}

	if len(documents) == 0 {
		fmt.Println("No matching documents.")
		return nil
	}
	for _, document := range documents {
		fmt.Printf("%s: %s\n", document.ID, document.Content)
	}
	return nil
}
