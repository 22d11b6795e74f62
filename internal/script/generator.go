// Package script turns natural-language prompts into Manim animation scripts
// and locates the renderable scene inside the generated source.
package script

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// Static errors for script generation.
var (
	// ErrAPIKeyRequired is returned when no API key is provided.
	ErrAPIKeyRequired = errors.New("script: API key is required")
	// ErrGenerationFailed is returned when the model call fails or produces
	// no usable completion.
	ErrGenerationFailed = errors.New("script: generation failed")
)

// systemPrompt is the fixed instruction sent with every generation request.
// It constrains the model to emit exactly one Scene subclass and nothing else.
const systemPrompt = `You are a Manim expert. Given a user prompt, generate a complete Python script using Manim CE.

Rules:
- Only output valid Python code.
- Import only required modules from manim.
- Define exactly one class that inherits from Scene.
- Name the class in PascalCase and include construct(self).
- No explanations, no markdown. Only code.

Example output:
from manim import *

class PythagoreanScene(Scene):
    def construct(self):
        # animation code here
`

// Generator defines the interface for producing an animation script from a
// user prompt. The returned text is plain Python source with no surrounding
// prose or code fences.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// OpenAIGenerator is the chat-completion implementation of Generator.
type OpenAIGenerator struct {
	client      *openai.Client
	model       string
	temperature float32
}

// GeneratorOption is a function that configures an OpenAIGenerator.
type GeneratorOption func(*generatorConfig)

type generatorConfig struct {
	model       string
	baseURL     string
	httpClient  *http.Client
	temperature float32
}

// WithModel sets the model used for completions.
func WithModel(model string) GeneratorOption {
	return func(c *generatorConfig) {
		c.model = model
	}
}

// WithBaseURL sets a custom API base URL, for OpenAI-compatible providers.
func WithBaseURL(url string) GeneratorOption {
	return func(c *generatorConfig) {
		c.baseURL = url
	}
}

// WithGeneratorHTTPClient sets a custom HTTP client.
func WithGeneratorHTTPClient(hc *http.Client) GeneratorOption {
	return func(c *generatorConfig) {
		c.httpClient = hc
	}
}

// WithTemperature sets the sampling temperature.
func WithTemperature(t float32) GeneratorOption {
	return func(c *generatorConfig) {
		c.temperature = t
	}
}

// NewOpenAIGenerator creates a generator backed by the OpenAI chat API.
func NewOpenAIGenerator(apiKey string, opts ...GeneratorOption) (*OpenAIGenerator, error) {
	if apiKey == "" {
		return nil, ErrAPIKeyRequired
	}

	cfg := &generatorConfig{
		model:       openai.GPT4oMini,
		temperature: 0.7,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	clientCfg := openai.DefaultConfig(apiKey)
	if cfg.baseURL != "" {
		clientCfg.BaseURL = cfg.baseURL
	}
	if cfg.httpClient != nil {
		clientCfg.HTTPClient = cfg.httpClient
	}

	return &OpenAIGenerator{
		client:      openai.NewClientWithConfig(clientCfg),
		model:       cfg.model,
		temperature: cfg.temperature,
	}, nil
}

// Generate issues a single chat completion and returns the cleaned script
// text. Any transport or model error is surfaced as ErrGenerationFailed; no
// retry is performed here.
func (g *OpenAIGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	req := openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: systemPrompt,
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
		Temperature: g.temperature,
	}

	resp, err := g.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: empty completion", ErrGenerationFailed)
	}

	source := stripFences(resp.Choices[0].Message.Content)
	if source == "" {
		return "", fmt.Errorf("%w: empty completion", ErrGenerationFailed)
	}

	return source, nil
}

// stripFences removes leading and trailing markdown code-fence markers.
// The model is instructed not to emit them, but is not trusted to comply.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		if i := strings.IndexByte(s, '\n'); i >= 0 {
			s = s[i+1:]
		} else {
			s = ""
		}
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
