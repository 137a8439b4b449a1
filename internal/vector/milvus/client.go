package milvus

import (
	"context"
	"fmt"
	"strings"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"
	"go.uber.org/zap"

	"github.com/course-compass/backend/internal/llm"
	"github.com/course-compass/backend/internal/samples"
	"github.com/course-compass/backend/pkg/logger"
	"github.com/course-compass/backend/pkg/utils"
)

// contextByteCap bounds the grounding context handed to a prompt.
const contextByteCap = 100000

// Client wraps the course/review embedding collection and implements the
// semantic-search grounding step used by both the serving path and the
// sample synthesizer.
type Client struct {
	client         client.Client
	embedder       llm.Embedder
	collectionName string
	vectorDim      int
	topK           int
	retrievalTask  string
}

type CourseRecord struct {
	CRN        string
	Embedding  []float32
	Content    string
	ReviewInfo string
}

func NewClient(endpoint string, embedder llm.Embedder, collectionName string, vectorDim, topK int, retrievalTask string) (*Client, error) {
	c, err := client.NewGrpcClient(context.Background(), endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to create milvus client: %w", err)
	}

	logger.Info("Milvus client initialized",
		zap.String("endpoint", endpoint),
		zap.String("collection", collectionName),
	)

	return &Client{
		client:         c,
		embedder:       embedder,
		collectionName: collectionName,
		vectorDim:      vectorDim,
		topK:           topK,
		retrievalTask:  retrievalTask,
	}, nil
}

func (c *Client) Close() error {
	return c.client.Close()
}

func (c *Client) CreateCollection(ctx context.Context) error {
	has, err := c.client.HasCollection(ctx, c.collectionName)
	if err != nil {
		return fmt.Errorf("failed to check collection: %w", err)
	}

	if has {
		logger.Info("Collection already exists", zap.String("collection", c.collectionName))
		return nil
	}

	schema := &entity.Schema{
		CollectionName: c.collectionName,
		Description:    "Course and review content embeddings",
		Fields: []*entity.Field{
			{
				Name:       "crn",
				DataType:   entity.FieldTypeVarChar,
				PrimaryKey: true,
				AutoID:     false,
				TypeParams: map[string]string{
					"max_length": "32",
				},
			},
			{
				Name:     "embedding",
				DataType: entity.FieldTypeFloatVector,
				TypeParams: map[string]string{
					"dim": fmt.Sprintf("%d", c.vectorDim),
				},
			},
			{
				Name:     "content",
				DataType: entity.FieldTypeVarChar,
				TypeParams: map[string]string{
					"max_length": "16384",
				},
			},
			{
				Name:     "review_info",
				DataType: entity.FieldTypeVarChar,
				TypeParams: map[string]string{
					"max_length": "32768",
				},
			},
		},
	}

	err = c.client.CreateCollection(ctx, schema, entity.DefaultShardNumber)
	if err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}

	idx, _ := entity.NewIndexIvfFlat(entity.COSINE, 1024)
	err = c.client.CreateIndex(ctx, c.collectionName, "embedding", idx, false)
	if err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}

	err = c.client.LoadCollection(ctx, c.collectionName, false)
	if err != nil {
		return fmt.Errorf("failed to load collection: %w", err)
	}

	logger.Info("Collection created and loaded", zap.String("collection", c.collectionName))
	return nil
}

func (c *Client) Insert(ctx context.Context, records []CourseRecord) error {
	if len(records) == 0 {
		return nil
	}

	crns := make([]string, len(records))
	embeddings := make([][]float32, len(records))
	contents := make([]string, len(records))
	reviews := make([]string, len(records))

	for i, r := range records {
		crns[i] = r.CRN
		embeddings[i] = r.Embedding
		contents[i] = r.Content
		reviews[i] = r.ReviewInfo
	}

	_, err := c.client.Insert(
		ctx,
		c.collectionName,
		"",
		entity.NewColumnVarChar("crn", crns),
		entity.NewColumnFloatVector("embedding", c.vectorDim, embeddings),
		entity.NewColumnVarChar("content", contents),
		entity.NewColumnVarChar("review_info", reviews),
	)
	if err != nil {
		return fmt.Errorf("failed to insert course records: %w", err)
	}

	err = c.client.Flush(ctx, c.collectionName, false)
	if err != nil {
		return fmt.Errorf("failed to flush: %w", err)
	}

	logger.Info("Course records inserted", zap.Int("count", len(records)))
	return nil
}

// SemanticSearch embeds the query, runs a cosine top-k search, and folds
// the matched course and review content into one grounding context. The
// context is punctuation-stripped and capped before prompting.
func (c *Client) SemanticSearch(ctx context.Context, query string) (*samples.SearchContext, error) {
	vectors, err := c.embedder.EmbedBatch(ctx, []string{query}, c.retrievalTask)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("empty query embedding")
	}

	sp, _ := entity.NewIndexIvfFlatSearchParam(16)

	searchResult, err := c.client.Search(
		ctx,
		c.collectionName,
		[]string{},
		"",
		[]string{"crn", "content", "review_info"},
		[]entity.Vector{entity.FloatVector(vectors[0])},
		"embedding",
		entity.COSINE,
		c.topK,
		sp,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to search: %w", err)
	}

	var crns []string
	var sections []string
	for _, sr := range searchResult {
		crnCol := sr.Fields.GetColumn("crn")
		contentCol := sr.Fields.GetColumn("content")
		reviewCol := sr.Fields.GetColumn("review_info")

		for i := 0; i < sr.ResultCount; i++ {
			crn, _ := crnCol.Get(i)
			content, _ := contentCol.Get(i)
			review, _ := reviewCol.Get(i)

			crns = append(crns, crn.(string))
			section := fmt.Sprintf("Course Information:\n%s\nReview Information:\n%s\n",
				content.(string), review.(string))
			sections = append(sections, utils.StripPunctuation(section))
		}
	}

	logger.Info("Semantic search completed",
		zap.String("query", query),
		zap.Int("matches", len(crns)),
	)

	return &samples.SearchContext{
		CRNs:    crns,
		Content: utils.TruncateBytes(strings.Join(sections, "\n\n"), contextByteCap),
	}, nil
}
