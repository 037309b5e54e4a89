package chroma

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/eugene-nechvoloda/MeetyAI-sub000/pkg/config"

	chroma "github.com/amikos-tech/chroma-go/pkg/api/v2"
	"github.com/amikos-tech/chroma-go/pkg/embeddings/gemini"
)

const (
	collectionName = "insights"
	maxDocumentLen = 4000
)

// InsightDocument is the indexed view of one insight.
type InsightDocument struct {
	ID           string
	TranscriptID string
	OwnerUserID  string
	Type         string
	Area         string
	Title        string
	Description  string
	Evidence     []string
}

// SearchHit is one semantic search match.
type SearchHit struct {
	InsightID string
	Distance  float64
}

type ChromaClient struct {
	client     chroma.Client
	collection chroma.Collection
	logger     *slog.Logger
}

func NewChromaClient(cfg *config.Config, logger *slog.Logger) (*ChromaClient, error) {
	if cfg.ChromaAPIKey == "" {
		return nil, fmt.Errorf("CHROMA_API_KEY is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	if cfg.GeminiApiKey != "" {
		os.Setenv("GEMINI_API_KEY", cfg.GeminiApiKey)
	}

	embedFunc, err := gemini.NewGeminiEmbeddingFunction(
		gemini.WithEnvAPIKey(),
		gemini.WithDefaultModel("text-embedding-004"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini embedding function: %w", err)
	}

	opts := []chroma.ClientOption{
		chroma.WithBaseURL(chroma.ChromaCloudEndpoint),
		chroma.WithCloudAPIKey(cfg.ChromaAPIKey),
	}
	switch {
	case cfg.ChromaDatabase != "" && cfg.ChromaTenant != "":
		opts = append(opts, chroma.WithDatabaseAndTenant(cfg.ChromaDatabase, cfg.ChromaTenant))
	case cfg.ChromaTenant != "":
		opts = append(opts, chroma.WithTenant(cfg.ChromaTenant))
	}
	client, err := chroma.NewHTTPClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Chroma client: %w", err)
	}

	collection, err := client.GetOrCreateCollection(
		context.Background(),
		collectionName,
		chroma.WithEmbeddingFunctionCreate(embedFunc),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create collection: %w", err)
	}

	logger.Info("chroma client initialized", "collection", collectionName)
	return &ChromaClient{
		client:     client,
		collection: collection,
		logger:     logger.With("component", "chroma"),
	}, nil
}

// UpsertInsights indexes insights, replacing any previous document with the same id.
func (c *ChromaClient) UpsertInsights(ctx context.Context, docs []InsightDocument) error {
	if len(docs) == 0 {
		return nil
	}
	ids := make([]chroma.DocumentID, 0, len(docs))
	texts := make([]string, 0, len(docs))
	metas := make([]chroma.DocumentMetadata, 0, len(docs))
	for _, doc := range docs {
		metadata, err := chroma.NewDocumentMetadataFromMap(DocumentMetadata(doc))
		if err != nil {
			return fmt.Errorf("failed to create metadata: %w", err)
		}
		ids = append(ids, chroma.DocumentID(doc.ID))
		texts = append(texts, DocumentText(doc))
		metas = append(metas, metadata)
	}

	if err := c.collection.Upsert(
		ctx,
		chroma.WithIDs(ids...),
		chroma.WithMetadatas(metas...),
		chroma.WithTexts(texts...),
	); err != nil {
		return fmt.Errorf("failed to upsert insight embeddings: %w", err)
	}
	c.logger.Debug("insights indexed", "count", len(docs))
	return nil
}

// Search returns the insights of one owner closest to query.
func (c *ChromaClient) Search(ctx context.Context, ownerUserID, query string, limit int) ([]SearchHit, error) {
	if limit <= 0 {
		limit = 10
	}
	results, err := c.collection.Query(
		ctx,
		chroma.WithQueryTexts(query),
		chroma.WithNResults(limit),
		chroma.WithWhereQuery(chroma.EqString("owner_user_id", ownerUserID)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query collection: %w", err)
	}
	if results == nil || results.CountGroups() == 0 {
		return []SearchHit{}, nil
	}

	idGroups := results.GetIDGroups()
	distanceGroups := results.GetDistancesGroups()
	if len(idGroups) == 0 {
		return []SearchHit{}, nil
	}
	ids := make([]string, 0, len(idGroups[0]))
	for _, id := range idGroups[0] {
		ids = append(ids, string(id))
	}
	var distances []float64
	if len(distanceGroups) > 0 {
		for _, d := range distanceGroups[0] {
			distances = append(distances, float64(d))
		}
	}
	return ZipHits(ids, distances), nil
}

// DeleteInsights removes insights from the index.
func (c *ChromaClient) DeleteInsights(ctx context.Context, insightIDs []string) error {
	if len(insightIDs) == 0 {
		return nil
	}
	ids := make([]chroma.DocumentID, 0, len(insightIDs))
	for _, id := range insightIDs {
		ids = append(ids, chroma.DocumentID(id))
	}
	if err := c.collection.Delete(ctx, chroma.WithIDsDelete(ids...)); err != nil {
		return fmt.Errorf("failed to delete insight embeddings: %w", err)
	}
	return nil
}

// DocumentText is the text embedded for an insight.
func DocumentText(doc InsightDocument) string {
	var b strings.Builder
	b.WriteString(doc.Title)
	if doc.Description != "" {
		b.WriteString("\n\n")
		b.WriteString(doc.Description)
	}
	for _, quote := range doc.Evidence {
		b.WriteString("\n> ")
		b.WriteString(quote)
	}
	text := b.String()
	if r := []rune(text); len(r) > maxDocumentLen {
		text = string(r[:maxDocumentLen])
	}
	return text
}

// DocumentMetadata is the filterable metadata stored alongside an insight.
func DocumentMetadata(doc InsightDocument) map[string]interface{} {
	meta := map[string]interface{}{
		"owner_user_id": doc.OwnerUserID,
		"transcript_id": doc.TranscriptID,
		"type":          doc.Type,
	}
	if doc.Area != "" {
		meta["area"] = doc.Area
	}
	return meta
}

// ZipHits pairs ids with distances; missing distances are reported as zero.
func ZipHits(ids []string, distances []float64) []SearchHit {
	hits := make([]SearchHit, 0, len(ids))
	for i, id := range ids {
		hit := SearchHit{InsightID: id}
		if i < len(distances) {
			hit.Distance = distances[i]
		}
		hits = append(hits, hit)
	}
	return hits
}
