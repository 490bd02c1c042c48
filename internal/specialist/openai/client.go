package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"

	"pait-backend/internal/specialist"
)

const maxTokens = 1024

// Client adapts an OpenAI chat model to the specialist.Worker interface.
// One Client serves a single role; register one per role with its own
// system prompt.
type Client struct {
	api   *openai.Client
	model string
	role  specialist.Role
}

// NewClient constructs a worker for the role.
func NewClient(apiKey, model string, role specialist.Role) *Client {
	return &Client{api: openai.NewClient(apiKey), model: model, role: role}
}

// RegisterWorkers fills the pool with an OpenAI-backed worker per role.
func RegisterWorkers(pool *specialist.Pool, apiKey, model string) {
	for _, role := range specialist.AllRoles() {
		pool.Register(role, NewClient(apiKey, model, role))
	}
}

type verdict struct {
	Score      float64 `json:"score"`
	Confidence float64 `json:"confidence"`
	Summary    string  `json:"summary"`
}

// Invoke asks the model for a JSON verdict on the artifact reference.
func (c *Client) Invoke(ctx context.Context, ref specialist.ArtifactRef) (specialist.Result, error) {
	model := c.model
	if model == "" {
		model = openai.GPT4oMini
	}
	req := openai.ChatCompletionRequest{
		Model:     model,
		MaxTokens: maxTokens,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt(c.role)},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt(ref)},
		},
	}

	resp, err := c.api.CreateChatCompletion(ctx, req)
	if err != nil {
		return specialist.Result{}, classify(c.role, err)
	}
	if len(resp.Choices) == 0 {
		return specialist.Result{}, &specialist.Error{
			Role: c.role,
			Kind: specialist.KindBackendUnavailable,
			Err:  errors.New("empty completion"),
		}
	}

	var v verdict
	if err := json.Unmarshal([]byte(resp.Choices[0].Message.Content), &v); err != nil {
		return specialist.Result{}, &specialist.Error{
			Role: c.role,
			Kind: specialist.KindInvalidArtifact,
			Err:  fmt.Errorf("parse verdict: %w", err),
		}
	}

	return specialist.Result{
		Role:       c.role,
		Score:      v.Score,
		Confidence: v.Confidence,
		Summary:    strings.TrimSpace(v.Summary),
	}, nil
}

func classify(role specialist.Role, err error) *specialist.Error {
	kind := specialist.KindBackendUnavailable
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		kind = specialist.KindTimeout
	}
	return &specialist.Error{Role: role, Kind: kind, Err: err}
}
