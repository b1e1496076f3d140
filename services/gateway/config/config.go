// Copyright (C) 2026 DocuChat Labs (oss@docuchat.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package config loads gateway configuration from the environment.
//
// A .env file in the working directory is loaded first when present
// (developer convenience); real deployments set environment variables
// through the container runtime.
package config

import (
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds all gateway settings.
//
// # Fields
//
//   - Port: HTTP listen port.
//   - EngineBackend: Which chat engine to use (remote, openai, ollama,
//     langchain).
//   - EngineURL: Base URL of the remote engine service or Ollama server.
//   - ModelID: Model identifier forwarded to the engine.
//   - APIKey: API key for hosted backends (openai, langchain).
//   - PreferredCallShape: Wire shape tried first against the remote engine
//     (positional or options).
//   - DocsOnly: Whether every conversation is forced to answer from the
//     indexed documents only.
//   - OTLPEndpoint: OTLP gRPC collector address for traces.
type Config struct {
	Port               string
	EngineBackend      string
	EngineURL          string
	ModelID            string
	APIKey             string
	PreferredCallShape string
	DocsOnly           bool
	OTLPEndpoint       string
}

// Load reads configuration from a .env file (if present) and the
// environment, applying defaults for anything unset.
func Load() *Config {
	if err := godotenv.Load(); err == nil {
		slog.Info("Loaded configuration from .env file")
	}

	cfg := &Config{
		Port:               getEnv("GATEWAY_PORT", "8080"),
		EngineBackend:      getEnv("ENGINE_BACKEND", "remote"),
		EngineURL:          getEnv("ENGINE_URL", "http://docuchat-engine:8000"),
		ModelID:            os.Getenv("MODEL_ID"),
		APIKey:             os.Getenv("OPENAI_API_KEY"),
		PreferredCallShape: getEnv("ENGINE_CALL_SHAPE", "options"),
		DocsOnly:           getBoolEnv("DOCS_ONLY_MODE", true),
		OTLPEndpoint:       getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "docuchat-otel-collector:4317"),
	}

	if cfg.APIKey == "" {
		// Hosted backends can also receive the key via container secret.
		secretPath := "/run/secrets/openai_api_key"
		if data, err := os.ReadFile(secretPath); err == nil {
			cfg.APIKey = strings.TrimSpace(string(data))
			slog.Info("Read the OpenAI API key from container secrets")
		}
	}

	return cfg
}

func getEnv(key, fallback string) string {
	// Trim quotes and whitespace in case the container runtime passes them
	// literally.
	if v := strings.Trim(os.Getenv(key), "\"' "); v != "" {
		return v
	}
	return fallback
}

func getBoolEnv(key string, fallback bool) bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	switch v {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	}
	return fallback
}
