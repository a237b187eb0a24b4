package generator_service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"sandbox-app-service/conf"

	"github.com/imroc/req"
	"github.com/tidwall/gjson"
)

const anthropicVersion = "2023-06-01"

// ErrEmptyCompletion the backend answered without any text block
var ErrEmptyCompletion = errors.New("empty completion")

// AnthropicGenerator ArtifactGenerator backed by the Anthropic Messages API
type AnthropicGenerator struct {
	baseURL          string
	apiKey           string
	model            string
	explainModel     string
	maxTokens        int
	explainMaxTokens int
	temperature      float64
	timeout          time.Duration
}

// NewAnthropicGenerator create generator from configuration
func NewAnthropicGenerator(cfg conf.GeneratorConfig) *AnthropicGenerator {
	return &AnthropicGenerator{
		baseURL:          strings.TrimRight(cfg.BaseUrl, "/"),
		apiKey:           cfg.ApiKey,
		model:            cfg.Model,
		explainModel:     cfg.ExplainModel,
		maxTokens:        cfg.MaxTokens,
		explainMaxTokens: cfg.ExplainMaxTokens,
		temperature:      cfg.Temperature,
		timeout:          time.Duration(cfg.TimeoutMs) * time.Millisecond,
	}
}

func (g *AnthropicGenerator) GenerateArtifact(ctx context.Context, instruction string, gc GenerationContext) (string, error) {
	prompt := InitialArtifactPrompt(instruction)
	if !gc.IsInitial() {
		prompt = FollowupArtifactPrompt(instruction, gc.PriorArtifact, gc.History)
	}
	return g.complete(ctx, g.model, g.maxTokens, prompt)
}

func (g *AnthropicGenerator) Explain(ctx context.Context, instruction, before, after string) (string, error) {
	prompt := InitialExplainPrompt(instruction, after)
	if before != "" {
		prompt = FollowupExplainPrompt(instruction, before, after)
	}
	return g.complete(ctx, g.explainModel, g.explainMaxTokens, prompt)
}

// complete sends one user turn and returns the first text block
func (g *AnthropicGenerator) complete(ctx context.Context, model string, maxTokens int, prompt string) (string, error) {
	body := map[string]interface{}{
		"model":       model,
		"max_tokens":  maxTokens,
		"temperature": g.temperature,
		"messages": []map[string]string{
			{"role": "user", "content": prompt},
		},
	}

	r := req.New()
	resp, err := r.Post(g.baseURL+"/v1/messages",
		ctx,
		&http.Client{Timeout: g.timeout},
		req.Header{
			"x-api-key":         g.apiKey,
			"anthropic-version": anthropicVersion,
			"content-type":      "application/json",
		},
		req.BodyJSON(body),
	)
	if err != nil {
		return "", fmt.Errorf("messages request: %w", err)
	}

	result := gjson.ParseBytes(resp.Bytes())
	if code := resp.Response().StatusCode; code != http.StatusOK {
		msg := result.Get("error.message").String()
		if msg == "" {
			msg = resp.String()
		}
		return "", fmt.Errorf("messages request: HTTP %d: %s", code, msg)
	}

	text := result.Get("content.0.text")
	if !text.Exists() {
		return "", ErrEmptyCompletion
	}
	return text.String(), nil
}
