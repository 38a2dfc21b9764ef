package client

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"github.com/ops-triage/backend/internal/config"
)

type EmbeddingClientConfig struct {
	APIKey string
	Model  string
}

// EmbeddingClient - 외부 임베딩 provider 호출 클라이언트
//
// 호출자는 반드시 타임아웃이 걸린 context를 넘겨야 함.
// 실패는 Retriever/Classifier의 fail-open 정책으로 흡수됨.
type EmbeddingClient struct {
	client *genai.Client
	model  string
}

func NewEmbeddingClient(cfg config.EmbeddingConfig) (*EmbeddingClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("missing AI_API_KEY")
	}
	clientCfg := EmbeddingClientConfig{APIKey: cfg.APIKey, Model: cfg.Model}
	if clientCfg.Model == "" {
		clientCfg.Model = "text-embedding-004"
	}
	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{APIKey: clientCfg.APIKey})
	if err != nil {
		return nil, err
	}
	return &EmbeddingClient{client: client, model: clientCfg.Model}, nil
}

func (c *EmbeddingClient) EmbedText(ctx context.Context, text string) ([]float32, string, error) {
	contents := []*genai.Content{
		genai.NewContentFromText(text, genai.RoleUser),
	}
	res, err := c.client.Models.EmbedContent(ctx, c.model, contents, nil)
	if err != nil {
		return nil, c.model, err
	}
	if res == nil || len(res.Embeddings) == 0 || res.Embeddings[0] == nil {
		return nil, c.model, fmt.Errorf("empty embedding result")
	}
	return res.Embeddings[0].Values, c.model, nil
}
