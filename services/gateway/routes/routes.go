// Copyright (C) 2026 DocuChat Labs (oss@docuchat.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/docuchat-ai/docuchat/services/engine"
	"github.com/docuchat-ai/docuchat/services/gateway/handlers"
)

// SetupRoutes registers the gateway's HTTP surface on the router.
func SetupRoutes(router *gin.Engine, chatEngine engine.ChatEngine, docsOnly bool) {
	router.GET("/health", handlers.HealthCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	chatHandler := handlers.NewStreamingChatHandler(chatEngine, docsOnly)

	// API version 1 group
	v1 := router.Group("/v1")
	{
		v1.POST("/chat/stream", chatHandler.HandleChatStream)
		v1.GET("/chat/ws", handlers.HandleChatWebSocket(chatEngine, docsOnly))
	}
}
