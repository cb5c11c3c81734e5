package rag

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

// Embedder transforma textos em vetores, na mesma ordem da entrada.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Completion é um pedido de resposta única (sem streaming).
type Completion struct {
	Model       string
	Prompt      string
	Temperature float64
	TopP        float64
	MaxTokens   int
}

type Completer interface {
	Complete(ctx context.Context, req Completion) (string, error)
}

// ErrUpstream embrulha respostas não-2xx do provedor.
var ErrUpstream = errors.New("llm upstream error")

// Client fala com qualquer provedor compatível com /chat/completions e
// /embeddings da OpenAI (NVIDIA NIM, OpenAI, Ollama, llm-falso).
type Client struct {
	baseURL        string
	apiKey         string
	embeddingModel string
	batchSize      int
	http           *http.Client
}

type ClientOption func(*Client)

func WithHTTPClient(c *http.Client) ClientOption {
	return func(cl *Client) { cl.http = c }
}

func WithEmbeddingModel(model string) ClientOption {
	return func(cl *Client) { cl.embeddingModel = model }
}

// WithBatchSize limita quantos textos vão em cada chamada de /embeddings.
func WithBatchSize(n int) ClientOption {
	return func(cl *Client) {
		if n > 0 {
			cl.batchSize = n
		}
	}
}

func NewClient(baseURL, apiKey string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:        strings.TrimRight(baseURL, "/"),
		apiKey:         apiKey,
		embeddingModel: "nvidia/nv-embed-v1",
		batchSize:      64,
		http:           &http.Client{Timeout: 60 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	TopP        float64       `json:"top_p"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Stream      bool          `json:"stream"`
}

func (c *Client) Complete(ctx context.Context, req Completion) (string, error) {
	body, err := c.post(ctx, "/chat/completions", chatRequest{
		Model:       req.Model,
		Messages:    []chatMessage{{Role: "user", Content: req.Prompt}},
		Temperature: req.Temperature,
		TopP:        req.TopP,
		MaxTokens:   req.MaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}

	content := gjson.GetBytes(body, "choices.0.message.content")
	if !content.Exists() {
		return "", errors.New("chat completion: response has no choices")
	}
	return strings.TrimSpace(content.String()), nil
}

type embeddingRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

func (c *Client) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += c.batchSize {
		batch := texts[start:min(start+c.batchSize, len(texts))]

		body, err := c.post(ctx, "/embeddings", embeddingRequest{Model: c.embeddingModel, Input: batch})
		if err != nil {
			return nil, fmt.Errorf("embeddings: %w", err)
		}

		vecs := make([][]float32, len(batch))
		gjson.GetBytes(body, "data").ForEach(func(_, item gjson.Result) bool {
			i := int(item.Get("index").Int())
			if i < 0 || i >= len(vecs) {
				return true
			}
			arr := item.Get("embedding").Array()
			v := make([]float32, len(arr))
			for j, x := range arr {
				v[j] = float32(x.Float())
			}
			vecs[i] = v
			return true
		})
		for i, v := range vecs {
			if len(v) == 0 {
				return nil, fmt.Errorf("embeddings: missing vector for input %d", start+i)
			}
		}
		out = append(out, vecs...)
	}
	return out, nil
}

func (c *Client) post(ctx context.Context, path string, payload any) ([]byte, error) {
	reqBody, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(reqBody))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode/100 != 2 {
		msg := gjson.GetBytes(body, "error.message").String()
		if msg == "" {
			msg = strings.TrimSpace(string(body))
		}
		return nil, fmt.Errorf("%w: status %d: %s", ErrUpstream, resp.StatusCode, msg)
	}
	return body, nil
}

var (
	_ Embedder  = (*Client)(nil)
	_ Completer = (*Client)(nil)
)
