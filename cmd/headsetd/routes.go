package main

import (
	"net/http"

	"headset-bridge/internal/auth"
	"headset-bridge/internal/httpapi"
	"headset-bridge/internal/rbac"

	"github.com/gin-gonic/gin"
)

// registerRoutes wires HTTP routes to handlers.
// Keep this file free of business logic. Handlers delegate to the orchestrator.
// A nil manager leaves /v1 open; the daemon only listens on loopback by default.
func registerRoutes(r *gin.Engine, h httpapi.Handlers, m *auth.Manager) {
	// public
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Groups copy their parent's middleware when created, so the token check goes on v1 first.
	v1 := r.Group("/v1")
	if m != nil {
		v1.Use(auth.RequireAccessToken(m))
	}
	read := v1.Group("")
	control := v1.Group("")
	if m != nil {
		read.Use(rbac.RequireScope(auth.ScopeRead))
		control.Use(rbac.RequireScope(auth.ScopeControl))
	}

	{
		read.GET("/devices/match", h.MatchDevice)
		read.GET("/status", h.Status)
		read.GET("/call", h.CurrentCall)
		read.GET("/calls/history", h.CallHistory)
		read.GET("/diagnostics/events", h.DiagnosticEvents)
		read.GET("/reports/calls", h.CallsReport)
		read.GET("/reports/vendor-events", h.VendorEventsReport)
		read.GET("/events", h.Events)
	}

	{
		control.POST("/microphone", h.SelectMicrophone)
		control.POST("/polling", h.SetEventPolling)

		calls := control.Group("/calls")
		calls.POST("/incoming", h.IncomingCall)
		calls.POST("/outgoing", h.OutgoingCall)
		calls.POST("/answer", h.AnswerCall)
		calls.POST("/end", h.EndCall)
		calls.POST("/mute", h.ToggleMute)
		calls.POST("/hold", h.ToggleHold)
		calls.POST("/end-all", h.EndAllCalls)
	}
}
