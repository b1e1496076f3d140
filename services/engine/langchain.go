// Copyright (C) 2026 DocuChat Labs (oss@docuchat.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/docuchat-ai/docuchat/services/gateway/datatypes"
	"github.com/tmc/langchaingo/llms"
	lcopenai "github.com/tmc/langchaingo/llms/openai"
)

// LangchainEngine adapts any langchaingo llms.Model to the ChatEngine
// contract. Useful for experimenting with providers we have no dedicated
// backend for.
type LangchainEngine struct {
	model llms.Model
}

// NewLangchainEngine wraps an existing langchaingo model.
func NewLangchainEngine(model llms.Model) *LangchainEngine {
	return &LangchainEngine{model: model}
}

// NewLangchainOpenAIEngine builds a LangchainEngine backed by langchaingo's
// OpenAI-compatible client. baseURL may point at any compatible server.
func NewLangchainOpenAIEngine(apiKey, model, baseURL string) (*LangchainEngine, error) {
	opts := []lcopenai.Option{
		lcopenai.WithToken(apiKey),
		lcopenai.WithModel(model),
	}
	if baseURL != "" {
		opts = append(opts, lcopenai.WithBaseURL(baseURL))
	}
	llm, err := lcopenai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize langchain OpenAI model: %w", err)
	}
	slog.Info("Initializing langchain engine", "model", model, "base_url", baseURL)
	return NewLangchainEngine(llm), nil
}

var _ ChatEngine = (*LangchainEngine)(nil)

// Chat implements ChatEngine.
func (e *LangchainEngine) Chat(ctx context.Context, message string, history []datatypes.NormalizedMessage) (string, error) {
	resp, err := e.model.GenerateContent(ctx, e.buildContent(message, history))
	if err != nil {
		return "", fmt.Errorf("langchain generation failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("langchain model returned no choices")
	}
	return resp.Choices[0].Content, nil
}

// ChatStream implements ChatEngine.
func (e *LangchainEngine) ChatStream(ctx context.Context, message string, history []datatypes.NormalizedMessage, callback StreamCallback) error {
	_, err := e.model.GenerateContent(ctx, e.buildContent(message, history),
		llms.WithStreamingFunc(func(ctx context.Context, chunk []byte) error {
			if len(chunk) == 0 {
				return nil
			}
			return callback(StreamEvent{Type: StreamEventToken, Content: string(chunk)})
		}),
	)
	if err != nil {
		return fmt.Errorf("langchain streaming generation failed: %w", err)
	}
	return nil
}

func (e *LangchainEngine) buildContent(message string, history []datatypes.NormalizedMessage) []llms.MessageContent {
	content := make([]llms.MessageContent, 0, len(history)+1)
	for _, m := range history {
		content = append(content, llms.TextParts(langchainRole(m.Role), m.Content))
	}
	return append(content, llms.TextParts(llms.ChatMessageTypeHuman, message))
}

func langchainRole(r datatypes.Role) llms.ChatMessageType {
	switch r {
	case datatypes.RoleSystem:
		return llms.ChatMessageTypeSystem
	case datatypes.RoleAssistant:
		return llms.ChatMessageTypeAI
	case datatypes.RoleTool:
		return llms.ChatMessageTypeTool
	default:
		return llms.ChatMessageTypeHuman
	}
}
