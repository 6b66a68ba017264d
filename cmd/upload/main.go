package upload

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"vectorload/config"
	"vectorload/credential"
	"vectorload/embedding"
	"vectorload/search"
)

const (
	dataDirectory  = "data"
	embeddingsFile = "embeddings.csv"
)

type indexManager interface {
	EnsureIndexCreated(ctx context.Context, dimensions int) error
	IsIndexEmpty(ctx context.Context) (bool, error)
	UploadDocuments(ctx context.Context, path string) error
	Close() error
}

// Upload provisions the search index and performs a one-time bulk upload of
// the precomputed embeddings in data/embeddings.csv. A missing required
// endpoint prints a diagnostic and exits cleanly; anything that fails after
// the clients exist propagates, after both clients are released.
func Upload(ctx *cli.Context) error {
	_ = godotenv.Overload()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if missing := cfg.MissingRequired(); missing != "" {
		fmt.Printf("Error: %s environment variable is not set\n", missing)
		return nil
	}

	fmt.Printf("Search Endpoint: %s\n", cfg.SearchEndpoint)
	fmt.Printf("Index Name: %s\n", cfg.IndexName)
	fmt.Printf("Embedding Model: %s\n", cfg.EmbedDeployment)
	fmt.Printf("Dimensions: %d\n", cfg.EmbedDimensions)

	cred, err := credential.Resolve(cfg.TenantID)
	if err != nil {
		return err
	}

	inferenceEndpoint, err := config.InferenceEndpoint(cfg.ProjectEndpoint)
	if err != nil {
		return err
	}
	embedClient := embedding.NewClient(inferenceEndpoint, cred.Transport(embedding.Scope), cfg.EmbedDeployment)

	backend, err := search.NewBackend(ctx.Context, cfg, cred)
	if err != nil {
		_ = embedClient.Close()
		return err
	}
	manager := search.NewManager(backend, embedClient, cfg.IndexName, cfg.EmbedDimensions, cfg.EmbedDeployment)

	return run(ctx.Context, manager, embedClient, cfg.IndexName, cfg.EmbedDimensions, filepath.Join(dataDirectory, embeddingsFile))
}

func run(ctx context.Context, manager indexManager, embedClient io.Closer, indexName string, dimensions int, path string) (err error) {
	defer func() {
		if closeErr := manager.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
		if closeErr := embedClient.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	fmt.Printf("\nCreating index %q if it doesn't exist...\n", indexName)
	if err := manager.EnsureIndexCreated(ctx, dimensions); err != nil {
		return fmt.Errorf("failed to create index %s: %w", indexName, err)
	}
	fmt.Println("Index ready.")

	empty, err := manager.IsIndexEmpty(ctx)
	if err != nil {
		return fmt.Errorf("failed to check whether index %s is empty: %w", indexName, err)
	}
	if !empty {
		fmt.Println("\nIndex already contains documents. Skipping upload.")
		fmt.Println("To re-upload, delete the index first.")
		return nil
	}

	fmt.Printf("\nUploading embeddings from %s...\n", path)
	if err := manager.UploadDocuments(ctx, path); err != nil {
		return fmt.Errorf("failed to upload embeddings: %w", err)
	}
	fmt.Println("Embeddings uploaded successfully!")
	return nil
}
