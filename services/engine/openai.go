// Copyright (C) 2026 DocuChat Labs (oss@docuchat.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/docuchat-ai/docuchat/services/gateway/datatypes"
	"github.com/sashabaranov/go-openai"
)

// OpenAIEngine answers chat turns directly against the OpenAI API, without a
// retrieval layer in front. Used for deployments where the document corpus is
// baked into the model's context by an upstream proxy.
type OpenAIEngine struct {
	client *openai.Client
	model  string
}

// NewOpenAIEngine creates an OpenAI-backed engine.
func NewOpenAIEngine(apiKey, model string) (*OpenAIEngine, error) {
	if apiKey == "" {
		slog.Error("OpenAI API key is not configured")
		return nil, fmt.Errorf("OpenAI API key is not configured")
	}
	if model == "" {
		model = openai.GPT4oMini
		slog.Warn("OpenAI model not set, defaulting", "model", model)
	}
	slog.Info("Initializing OpenAI engine", "model", model)
	return &OpenAIEngine{
		client: openai.NewClient(apiKey),
		model:  model,
	}, nil
}

var _ ChatEngine = (*OpenAIEngine)(nil)

// Chat implements ChatEngine.
func (e *OpenAIEngine) Chat(ctx context.Context, message string, history []datatypes.NormalizedMessage) (string, error) {
	slog.Debug("Generating chat completion via OpenAI", "model", e.model)
	resp, err := e.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    e.model,
		Messages: e.buildMessages(message, history),
	})
	if err != nil {
		slog.Error("OpenAI API call failed", "error", err)
		return "", fmt.Errorf("OpenAI API call failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		slog.Warn("OpenAI returned no choices")
		return "", fmt.Errorf("OpenAI returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

// ChatStream implements ChatEngine.
func (e *OpenAIEngine) ChatStream(ctx context.Context, message string, history []datatypes.NormalizedMessage, callback StreamCallback) error {
	slog.Debug("Streaming chat completion via OpenAI", "model", e.model)
	stream, err := e.client.CreateChatCompletionStream(ctx, openai.ChatCompletionRequest{
		Model:    e.model,
		Messages: e.buildMessages(message, history),
		Stream:   true,
	})
	if err != nil {
		slog.Error("OpenAI streaming call failed", "error", err)
		return fmt.Errorf("OpenAI streaming call failed: %w", err)
	}
	defer stream.Close()

	for {
		resp, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("OpenAI stream read failed: %w", err)
		}
		if len(resp.Choices) == 0 {
			continue
		}
		delta := resp.Choices[0].Delta.Content
		if delta == "" {
			continue
		}
		if err := callback(StreamEvent{Type: StreamEventToken, Content: delta}); err != nil {
			return err
		}
	}
}

func (e *OpenAIEngine) buildMessages(message string, history []datatypes.NormalizedMessage) []openai.ChatCompletionMessage {
	messages := make([]openai.ChatCompletionMessage, 0, len(history)+1)
	for _, m := range history {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openAIRole(m.Role),
			Content: m.Content,
		})
	}
	return append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: message,
	})
}

func openAIRole(r datatypes.Role) string {
	switch r {
	case datatypes.RoleSystem:
		return openai.ChatMessageRoleSystem
	case datatypes.RoleAssistant:
		return openai.ChatMessageRoleAssistant
	case datatypes.RoleTool:
		return openai.ChatMessageRoleTool
	default:
		return openai.ChatMessageRoleUser
	}
}
