package repositories

import (
	"context"

	"cloud.google.com/go/vertexai/genai"
	genai_std "google.golang.org/genai"
)

type AIClientConfig struct {
	ProjectID    string
	Location     string
	GeminiAPIKey string
}

// VertexAIClientPool hands out the shared Vertex AI SDK client.
type VertexAIClientPool interface {
	GetVertexAIClient(ctx context.Context) (*genai.Client, error)

	Close() error
}

// GenAIClientPool hands out the shared google.golang.org/genai client.
type GenAIClientPool interface {
	GetGenAIClient(ctx context.Context) (*genai_std.Client, error)

	Close() error
}

type ClientPoolService interface {
	VertexAIPool() VertexAIClientPool

	GenAIPool() GenAIClientPool

	Config() *AIClientConfig

	Close() error
}
