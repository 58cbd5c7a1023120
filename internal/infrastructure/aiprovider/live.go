// Package aiprovider holds the guidance.Provider implementations: the live
// generative-language client and the canned mock used without a credential.
package aiprovider

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/sashabaranov/go-openai"

	"gracechat-server/internal/domain/guidance"
)

// systemPrompt fixes persona, tone and the required output shape. The model
// must answer with bare JSON matching the guidance.Response contract.
const systemPrompt = `You are a thoughtful, compassionate Christian devotional guide. ` +
	`Answer the user's question about faith or scripture with warmth and humility. ` +
	`Respond ONLY with JSON of this exact shape, no prose around it:
{"interpretations":[{"view":"<one explanatory paragraph>","scriptures":[{"reference":"<book chapter:verse>","text":"<full verse text>","translation":"<translation code such as NIV>"}]}]}
Provide at least one interpretation. Include a scripture citation whenever one applies.`

// LiveProvider asks a hosted chat-completion model for guidance.
type LiveProvider struct {
	client  *openai.Client
	model   string
	timeout time.Duration
	log     zerolog.Logger
}

// LiveConfig carries the upstream model settings.
type LiveConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// NewLiveProvider builds the live client.
func NewLiveProvider(cfg LiveConfig, log zerolog.Logger) *LiveProvider {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &LiveProvider{
		client:  openai.NewClientWithConfig(clientCfg),
		model:   cfg.Model,
		timeout: timeout,
		log:     log.With().Str("component", "live-provider").Logger(),
	}
}

// Guidance sends the templated prompt upstream and normalizes the answer.
// Timeouts and transport failures map to ErrUpstreamCall; answers that do not
// parse map to ErrMalformedAnswer and are final for the request.
func (p *LiveProvider) Guidance(ctx context.Context, question string) (*guidance.Response, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: p.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: question},
		},
		Temperature: 0.7,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", guidance.ErrUpstreamCall, err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%w: empty completion", guidance.ErrUpstreamCall)
	}

	parsed, err := ParseModelOutput(resp.Choices[0].Message.Content)
	if err != nil {
		p.log.Warn().Err(err).Msg("model output did not parse")
		return nil, err
	}
	return parsed, nil
}

// ParseModelOutput strips any code fences the model wrapped the JSON in and
// decodes the structured response.
func ParseModelOutput(raw string) (*guidance.Response, error) {
	cleaned := stripCodeFences(raw)

	var out guidance.Response
	if err := json.Unmarshal([]byte(cleaned), &out); err != nil {
		return nil, fmt.Errorf("%w: %v", guidance.ErrMalformedAnswer, err)
	}
	if len(out.Interpretations) == 0 {
		return nil, fmt.Errorf("%w: no interpretations", guidance.ErrMalformedAnswer)
	}
	return &out, nil
}

func stripCodeFences(raw string) string {
	text := strings.TrimSpace(raw)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	return strings.TrimSpace(text)
}

// Ensure interface compliance.
var _ guidance.Provider = (*LiveProvider)(nil)
