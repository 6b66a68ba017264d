package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"vectorload/config"
	"vectorload/credential"
	"vectorload/embedding"
	"vectorload/search"
)

type SearchPayload struct {
	UserQuery string
}

type SearchResponse struct {
	UserQuery string
	Matches   []embedding.Document
}

type server struct {
	manager *search.Manager
	logger  *slog.Logger
}

func main() {
	_ = godotenv.Overload()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	if missing := cfg.MissingRequired(); missing != "" {
		log.Fatalf("%s environment variable is not set", missing)
	}

	cred, err := credential.Resolve(cfg.TenantID)
	if err != nil {
		log.Fatal(err)
	}

	inferenceEndpoint, err := config.InferenceEndpoint(cfg.ProjectEndpoint)
	if err != nil {
		log.Fatal(err)
	}
	embedClient := embedding.NewClient(inferenceEndpoint, cred.Transport(embedding.Scope), cfg.EmbedDeployment)

	backend, err := search.NewBackend(context.Background(), cfg, cred)
	if err != nil {
		log.Fatal(err)
	}

	s := &server{
		manager: search.NewManager(backend, embedClient, cfg.IndexName, cfg.EmbedDimensions, cfg.EmbedDeployment),
		logger:  slog.Default(),
	}

	router := gin.Default()
	router.Use(cors.Default()) // Allow all origins

	router.POST("/search", s.searchHandler)

	err = router.Run() // listen and serve on 0.0.0.0:8080
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal("Unexpected error in http server:", err)
	}
}

func (s *server) searchHandler(ctx *gin.Context) {
	var payload SearchPayload
	if err := ctx.Bind(&payload); err != nil {
		s.logger.ErrorContext(ctx, "failed to bind request to expected object", slog.Any("error", err))
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	matches, err := s.manager.Search(ctx, payload.UserQuery, 10)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "something went wrong talking to the search index"})
		s.logger.ErrorContext(ctx, "failed to locate nearby documents for user query", slog.Any("error", err))
		return
	}

	ctx.JSON(http.StatusOK, &SearchResponse{
		UserQuery: payload.UserQuery,
		Matches:   matches,
	})
}
