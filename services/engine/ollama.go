// Copyright (C) 2026 DocuChat Labs (oss@docuchat.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package engine

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/docuchat-ai/docuchat/services/gateway/datatypes"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var ollamaTracer = otel.Tracer("docuchat.engine.ollama")

// OllamaEngine answers chat turns against a local Ollama server's /api/chat
// endpoint. Intended for air-gapped deployments where neither the remote
// engine service nor a hosted API is reachable.
type OllamaEngine struct {
	httpClient *http.Client
	baseURL    string
	model      string
}

// ollamaMessage is the message shape Ollama's chat API expects.
type ollamaMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ollamaChatRequest struct {
	Model    string          `json:"model"`
	Messages []ollamaMessage `json:"messages"`
	Stream   bool            `json:"stream"`
}

type ollamaChatChunk struct {
	Message ollamaMessage `json:"message"`
	Done    bool          `json:"done"`
	Error   string        `json:"error,omitempty"`
}

// NewOllamaEngine creates an Ollama-backed engine.
func NewOllamaEngine(baseURL, model string) (*OllamaEngine, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("Ollama base URL is not configured")
	}
	if model == "" {
		model = "llama3.1"
		slog.Warn("Ollama model not set, defaulting", "model", model)
	}
	baseURL = strings.TrimSuffix(baseURL, "/")
	slog.Info("Initializing Ollama engine", "base_url", baseURL, "model", model)
	return &OllamaEngine{
		httpClient: &http.Client{Timeout: 5 * time.Minute},
		baseURL:    baseURL,
		model:      model,
	}, nil
}

var _ ChatEngine = (*OllamaEngine)(nil)

// Chat implements ChatEngine.
func (e *OllamaEngine) Chat(ctx context.Context, message string, history []datatypes.NormalizedMessage) (string, error) {
	ctx, span := ollamaTracer.Start(ctx, "OllamaEngine.Chat")
	defer span.End()
	span.SetAttributes(attribute.String("llm.model", e.model))

	resp, err := e.post(ctx, message, history, false)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", fmt.Errorf("failed to read response body from Ollama: %w", err)
	}
	var chunk ollamaChatChunk
	if err := json.Unmarshal(respBody, &chunk); err != nil {
		slog.Error("Failed to parse JSON chat response from Ollama", "error", err, "response", string(respBody))
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", fmt.Errorf("failed to parse Ollama chat response: %w", err)
	}
	if chunk.Message.Role != "assistant" {
		slog.Warn("Ollama chat response message role was not 'assistant'", "role", chunk.Message.Role)
	}
	return chunk.Message.Content, nil
}

// ChatStream implements ChatEngine.
func (e *OllamaEngine) ChatStream(ctx context.Context, message string, history []datatypes.NormalizedMessage, callback StreamCallback) error {
	ctx, span := ollamaTracer.Start(ctx, "OllamaEngine.ChatStream")
	defer span.End()
	span.SetAttributes(
		attribute.String("llm.model", e.model),
		attribute.Int("llm.num_messages", len(history)+1),
	)

	resp, err := e.post(ctx, message, history, true)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	defer resp.Body.Close()

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var chunk ollamaChatChunk
		if err := json.Unmarshal(line, &chunk); err != nil {
			return fmt.Errorf("failed to parse Ollama stream chunk: %w", err)
		}
		if chunk.Error != "" {
			_ = callback(StreamEvent{Type: StreamEventError, Err: chunk.Error})
			return fmt.Errorf("ollama stream error: %s", chunk.Error)
		}
		if chunk.Message.Content != "" {
			if err := callback(StreamEvent{Type: StreamEventToken, Content: chunk.Message.Content}); err != nil {
				return err
			}
		}
		if chunk.Done {
			return nil
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("ollama stream read failed: %w", err)
	}
	return nil
}

// post sends a chat request and checks the status. On 404 with a model error
// body it returns the actionable pull hint instead of the raw status line.
func (e *OllamaEngine) post(ctx context.Context, message string, history []datatypes.NormalizedMessage, stream bool) (*http.Response, error) {
	messages := make([]ollamaMessage, 0, len(history)+1)
	for _, m := range history {
		messages = append(messages, ollamaMessage{Role: string(m.Role), Content: m.Content})
	}
	messages = append(messages, ollamaMessage{Role: "user", Content: message})

	reqBody, err := json.Marshal(ollamaChatRequest{
		Model:    e.model,
		Messages: messages,
		Stream:   stream,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal chat request to Ollama: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/api/chat", bytes.NewBuffer(reqBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create chat request to Ollama: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		slog.Error("Ollama API call failed", "error", err)
		return nil, fmt.Errorf("Ollama API call failed: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		if resp.StatusCode == http.StatusNotFound {
			var errResp struct {
				Error string `json:"error"`
			}
			if err := json.Unmarshal(respBody, &errResp); err == nil &&
				strings.Contains(errResp.Error, "model") && strings.Contains(errResp.Error, "not found") {
				slog.Warn("Ollama model not found", "model", e.model)
				return nil, fmt.Errorf("model '%s' not found. Please run: 'ollama pull %s'", e.model, e.model)
			}
		}
		slog.Error("Ollama returned an error", "status_code", resp.StatusCode, "response", string(respBody))
		return nil, fmt.Errorf("Ollama failed with status %d: %s", resp.StatusCode, string(respBody))
	}
	return resp, nil
}
