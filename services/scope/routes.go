// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package scope

import (
	"github.com/gin-gonic/gin"
)

// RegisterRoutes registers all scope routes with the router.
//
// Description:
//
//	Registers all /v1/scope/* endpoints with the given Gin router group.
//	The router group should already have any required middleware applied.
//
// Inputs:
//
//	rg - Gin router group (typically /v1)
//	handlers - The handlers instance
//
// Endpoints:
//
//	GET    /v1/scope/health - Health check
//	GET    /v1/scope/ready - Readiness check
//	GET    /v1/scope/scene - Current graph stats
//	POST   /v1/scope/sessions - Open a session
//	GET    /v1/scope/sessions/:id - Current frame
//	DELETE /v1/scope/sessions/:id - Close a session
//	POST   /v1/scope/sessions/:id/events - Apply a user event
//	POST   /v1/scope/sessions/:id/select - Select by id
//	POST   /v1/scope/sessions/:id/clear - Clear the selection
//	GET    /v1/scope/sessions/:id/search - List search matches
//	GET    /v1/scope/sessions/:id/ws - Websocket event stream
//
// Example:
//
//	svc := scope.NewService(scope.DefaultServiceConfig(), sc)
//	v1 := router.Group("/v1")
//	scope.RegisterRoutes(v1, scope.NewHandlers(svc))
func RegisterRoutes(rg *gin.RouterGroup, handlers *Handlers) {
	scope := rg.Group("/scope")
	{
		scope.GET("/health", handlers.HandleHealth)
		scope.GET("/ready", handlers.HandleReady)
		scope.GET("/scene", handlers.HandleScene)

		scope.POST("/sessions", handlers.HandleCreateSession)
		scope.GET("/sessions/:id", handlers.HandleGetSession)
		scope.DELETE("/sessions/:id", handlers.HandleDeleteSession)
		scope.POST("/sessions/:id/events", handlers.HandleEvent)
		scope.POST("/sessions/:id/select", handlers.HandleSelect)
		scope.POST("/sessions/:id/clear", handlers.HandleClear)
		scope.GET("/sessions/:id/search", handlers.HandleSearch)
		scope.GET("/sessions/:id/ws", handlers.HandleWebSocket)
	}
}
