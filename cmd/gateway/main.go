// Copyright (C) 2026 DocuChat Labs (oss@docuchat.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Command gateway starts the DocuChat chat gateway HTTP server.
//
// This is the main entry point for the containerized gateway service.
// It reads configuration from environment variables (or a .env file) and
// starts the server.
//
// # Environment Variables
//
//   - GATEWAY_PORT: HTTP server port (default: 8080)
//   - ENGINE_BACKEND: Chat engine - remote, openai, ollama, langchain (default: remote)
//   - ENGINE_URL: Remote engine or Ollama base URL (default: http://docuchat-engine:8000)
//   - ENGINE_CALL_SHAPE: Wire shape tried first - positional, options (default: options)
//   - MODEL_ID: Model identifier forwarded to the engine
//   - OPENAI_API_KEY: API key for hosted backends
//   - DOCS_ONLY_MODE: Force document-grounded answers (default: true)
//   - OTEL_EXPORTER_OTLP_ENDPOINT: OpenTelemetry collector (default: docuchat-otel-collector:4317)
//
// # Usage
//
//	# Build
//	go build -o gateway ./cmd/gateway
//
//	# Run
//	./gateway
//
//	# Or via container
//	podman-compose up gateway
package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"

	"github.com/docuchat-ai/docuchat/services/engine"
	"github.com/docuchat-ai/docuchat/services/gateway/config"
	"github.com/docuchat-ai/docuchat/services/gateway/observability"
	"github.com/docuchat-ai/docuchat/services/gateway/routes"
)

func initTracer(otelEndpoint string) (func(context.Context), error) {
	ctx := context.Background()

	conn, err := grpc.NewClient(otelEndpoint,
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, err
	}
	traceExporter, err := otlptracegrpc.New(ctx, otlptracegrpc.WithGRPCConn(conn))
	if err != nil {
		return nil, err
	}
	res, err := resource.New(ctx,
		resource.WithAttributes(semconv.ServiceNameKey.String("docuchat-gateway")))
	if err != nil {
		return nil, err
	}
	bsp := sdktrace.NewBatchSpanProcessor(traceExporter)
	traceProvider := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithResource(res),
		sdktrace.WithSpanProcessor(bsp))
	otel.SetTracerProvider(traceProvider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.
		TraceContext{}, propagation.Baggage{}))

	return func(ctx context.Context) {
		ctx, cancel := context.WithTimeout(ctx, time.Second*5)
		defer cancel()
		if err := traceExporter.Shutdown(ctx); err != nil {
			slog.Error("failed to shutdown OTLP exporter", "error", err)
		}
	}, nil
}

func buildEngine(cfg *config.Config) (engine.ChatEngine, error) {
	switch cfg.EngineBackend {
	case "openai":
		slog.Info("Using OpenAI engine backend")
		return engine.NewOpenAIEngine(cfg.APIKey, cfg.ModelID)
	case "ollama":
		slog.Info("Using Ollama engine backend")
		return engine.NewOllamaEngine(cfg.EngineURL, cfg.ModelID)
	case "langchain":
		slog.Info("Using langchain engine backend")
		return engine.NewLangchainOpenAIEngine(cfg.APIKey, cfg.ModelID, "")
	case "remote":
		slog.Info("Using remote engine backend", "url", cfg.EngineURL)
		return engine.NewRemoteEngine(cfg.EngineURL, cfg.ModelID, engine.ParseCallShape(cfg.PreferredCallShape)), nil
	default:
		slog.Warn("ENGINE_BACKEND not set or invalid, defaulting to remote", "value", cfg.EngineBackend)
		return engine.NewRemoteEngine(cfg.EngineURL, cfg.ModelID, engine.ParseCallShape(cfg.PreferredCallShape)), nil
	}
}

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg := config.Load()

	cleanup, err := initTracer(cfg.OTLPEndpoint)
	if err != nil {
		log.Fatalf("failed to setup the OTLP tracer: %v", err)
	}
	defer cleanup(context.Background())

	observability.InitMetrics()

	chatEngine, err := buildEngine(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize chat engine: %v", err)
	}

	router := gin.Default()
	router.Use(otelgin.Middleware("docuchat-gateway"))

	routes.SetupRoutes(router, chatEngine, cfg.DocsOnly)

	slog.Info("Starting the gateway server",
		"port", cfg.Port,
		"engine_backend", cfg.EngineBackend,
		"docs_only", cfg.DocsOnly,
	)
	if err := router.Run(":" + cfg.Port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
