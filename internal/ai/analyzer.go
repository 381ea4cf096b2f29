package ai

import (
	"context"
	"errors"
	"fmt"

	"NetFocus/internal/config"

	"github.com/sashabaranov/go-openai"
)

// TrafficAnalyzer implements the Analyzer interface using an OpenAI
// compatible API.
type TrafficAnalyzer struct {
	cfg    *config.AIConfig
	client *openai.Client
}

// NewTrafficAnalyzer creates a new instance of TrafficAnalyzer.
func NewTrafficAnalyzer(cfg *config.AIConfig) (*TrafficAnalyzer, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("AI API key is not configured")
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	client := openai.NewClientWithConfig(clientConfig)

	return &TrafficAnalyzer{
		cfg:    cfg,
		client: client,
	}, nil
}

// AnalyzeTraffic analyzes the input text and returns a summary or insights.
func (a *TrafficAnalyzer) AnalyzeTraffic(ctx context.Context, input string) (string, error) {
	prompt := fmt.Sprintf(
		"You are a senior network security analyst. "+
			"Please analyze the following address cluster report from the NetFocus monitoring system. "+
			"Hot clusters are address prefixes whose packet rate exceeded the admitted threshold; "+
			"deeper prefixes mean the monitor pinned the growth to a narrower address range. "+
			"Provide a concise analysis of the potential threat, its severity, and recommended next steps for investigation. "+
			"The output should be clear and actionable.\n\n"+
			"--- Cluster Report ---\n%s\n--- End of Cluster Report ---", input,
	)

	resp, err := a.client.CreateChatCompletion(
		ctx,
		openai.ChatCompletionRequest{
			Model: a.cfg.Model,
			Messages: []openai.ChatCompletionMessage{
				{
					Role:    openai.ChatMessageRoleUser,
					Content: prompt,
				},
			},
		},
	)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return "", fmt.Errorf("AI request timeout: %w", err)
		}
		if errors.Is(err, context.Canceled) {
			return "", fmt.Errorf("AI request canceled by client: %w", err)
		}
		return "", fmt.Errorf("OpenAI API error: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("OpenAI API returned no choices")
	}

	return resp.Choices[0].Message.Content, nil
}
