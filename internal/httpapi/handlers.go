package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"headset-bridge/internal/calls"
	"headset-bridge/internal/devices"
	"headset-bridge/internal/eventlog"
	"headset-bridge/internal/headset"
	"headset-bridge/internal/reporting"
	"headset-bridge/internal/vendors"
	"headset-bridge/pkg/logger"

	"github.com/gin-gonic/gin"
)

// Handlers groups HTTP handlers for dependency injection.
// Keep these thin: parse/validate input, call the orchestrator, return JSON.
type Handlers struct {
	Headset     *headset.Orchestrator
	History     *calls.History
	Diagnostics *eventlog.Service
	Reports     *reporting.Service

	Stream StreamOptions
}

// --- Devices ---

type microphoneRequest struct {
	DeviceID string `json:"deviceId"`
	Label    string `json:"label"`
	Kind     string `json:"kind"`
}

type matchResponse struct {
	Matched bool             `json:"matched"`
	Vendor  vendors.VendorID `json:"vendor,omitempty"`
}

// SelectMicrophone routes to the vendor integration matching the chosen input device.
func (h Handlers) SelectMicrophone(c *gin.Context) {
	var req microphoneRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if req.Label == "" && req.DeviceID == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "label or deviceId required"})
		return
	}
	vendor, matched, err := h.Headset.SelectMicrophone(c.Request.Context(), devices.MediaDevice{
		DeviceID: req.DeviceID,
		Label:    req.Label,
		Kind:     req.Kind,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, matchResponse{Matched: matched, Vendor: vendor})
}

func (h Handlers) MatchDevice(c *gin.Context) {
	d := devices.MediaDevice{Label: c.Query("label"), DeviceID: c.Query("deviceId")}
	if d.Label == "" && d.DeviceID == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "label or deviceId required"})
		return
	}
	vendor, matched := h.Headset.MatchDevice(d)
	c.JSON(http.StatusOK, matchResponse{Matched: matched, Vendor: vendor})
}

func (h Handlers) Status(c *gin.Context) {
	c.JSON(http.StatusOK, h.Headset.Status())
}

type pollingRequest struct {
	Enabled *bool `json:"enabled"`
}

// SetEventPolling toggles call-event polling on the active implementation.
func (h Handlers) SetEventPolling(c *gin.Context) {
	var req pollingRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Enabled == nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "enabled required"})
		return
	}
	h.Headset.SetEventPolling(*req.Enabled)
	c.JSON(http.StatusOK, h.Headset.Status())
}

// --- Calls ---

type callRequest struct {
	ConversationID string `json:"conversationId"`
	ContactName    string `json:"contactName"`
}

type sessionResponse struct {
	Session *headset.CallSession `json:"session"`
}

func (h Handlers) CurrentCall(c *gin.Context) {
	s, ok := h.Headset.Session()
	if !ok {
		c.JSON(http.StatusOK, sessionResponse{})
		return
	}
	c.JSON(http.StatusOK, sessionResponse{Session: &s})
}

func (h Handlers) IncomingCall(c *gin.Context) {
	h.startCall(c, h.Headset.IncomingCall)
}

func (h Handlers) OutgoingCall(c *gin.Context) {
	h.startCall(c, h.Headset.OutgoingCall)
}

func (h Handlers) startCall(c *gin.Context, start func(ctx context.Context, info vendors.CallInfo) (headset.CallSession, error)) {
	var req callRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if req.ConversationID == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "conversationId required"})
		return
	}
	s, err := start(c.Request.Context(), vendors.CallInfo{
		ConversationID: req.ConversationID,
		ContactName:    req.ContactName,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, sessionResponse{Session: &s})
}

func (h Handlers) AnswerCall(c *gin.Context) {
	h.sessionCommand(c, h.Headset.Answer)
}

func (h Handlers) ToggleMute(c *gin.Context) {
	h.sessionCommand(c, h.Headset.ToggleMute)
}

func (h Handlers) ToggleHold(c *gin.Context) {
	h.sessionCommand(c, h.Headset.ToggleHold)
}

func (h Handlers) sessionCommand(c *gin.Context, cmd func(ctx context.Context) (headset.CallSession, error)) {
	s, err := cmd(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, sessionResponse{Session: &s})
}

func (h Handlers) EndCall(c *gin.Context) {
	if err := h.Headset.End(c.Request.Context()); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, sessionResponse{})
}

func (h Handlers) EndAllCalls(c *gin.Context) {
	if err := h.Headset.EndAll(c.Request.Context()); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, sessionResponse{})
}

func (h Handlers) CallHistory(c *gin.Context) {
	if h.History == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "call history not configured"})
		return
	}
	limit, ok := limitParam(c)
	if !ok {
		return
	}
	records, err := h.History.List(c.Request.Context(), limit)
	if err != nil {
		logger.FromGin(c).Error("call history lookup failed", "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "call history lookup failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"calls": records})
}

// --- Diagnostics ---

func (h Handlers) DiagnosticEvents(c *gin.Context) {
	if h.Diagnostics == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "diagnostics not configured"})
		return
	}
	limit, ok := limitParam(c)
	if !ok {
		return
	}
	events, err := h.Diagnostics.Recent(c.Request.Context(), limit)
	if err != nil {
		logger.FromGin(c).Error("diagnostics lookup failed", "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "diagnostics lookup failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"events": events})
}

// --- Reports ---

const defaultReportWindow = 24 * time.Hour

// CallsReport summarizes finished calls. from/to are RFC3339; the default window is the
// last 24 hours.
func (h Handlers) CallsReport(c *gin.Context) {
	if h.Reports == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "reporting not configured"})
		return
	}
	to := time.Now().UTC()
	if raw := c.Query("to"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "to must be RFC3339"})
			return
		}
		to = t
	}
	from := to.Add(-defaultReportWindow)
	if raw := c.Query("from"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "from must be RFC3339"})
			return
		}
		from = t
	}

	out, err := h.Reports.CallsSummary(c.Request.Context(), reporting.CallsSummaryRequest{
		Range:  reporting.TimeRange{From: from, To: to},
		Vendor: c.Query("vendor"),
	})
	if err != nil {
		h.reportFailed(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h Handlers) VendorEventsReport(c *gin.Context) {
	if h.Reports == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "reporting not configured"})
		return
	}
	limit, ok := limitParam(c)
	if !ok {
		return
	}
	out, err := h.Reports.VendorEvents(c.Request.Context(), reporting.VendorEventsRequest{
		Limit:  limit,
		Vendor: c.Query("vendor"),
	})
	if err != nil {
		h.reportFailed(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h Handlers) reportFailed(c *gin.Context, err error) {
	if errors.Is(err, reporting.ErrInvalidRequest) {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	logger.FromGin(c).Error("report failed", "err", err)
	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "report failed"})
}

func limitParam(c *gin.Context) (int, bool) {
	raw := c.Query("limit")
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "limit must be a non-negative integer"})
		return 0, false
	}
	return n, true
}

// --- Errors ---

func (h Handlers) fail(c *gin.Context, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		logger.FromGin(c).Error("headset command failed", "err", err, "status", status)
	} else {
		logger.FromGin(c).Info("headset command refused", "err", err, "status", status)
	}
	c.AbortWithStatusJSON(status, gin.H{"error": err.Error()})
}

// statusFor maps orchestrator and vendor errors onto HTTP statuses.
func statusFor(err error) int {
	switch {
	case errors.Is(err, vendors.ErrTransport):
		return http.StatusBadGateway
	case errors.Is(err, vendors.ErrVendorRejected),
		errors.Is(err, vendors.ErrNotActive),
		errors.Is(err, headset.ErrCallInProgress),
		errors.Is(err, headset.ErrCallNotConnected):
		return http.StatusConflict
	case errors.Is(err, headset.ErrNoCall):
		return http.StatusNotFound
	case errors.Is(err, headset.ErrUnknownVendor),
		errors.Is(err, headset.ErrInvalidCall):
		return http.StatusBadRequest
	case errors.Is(err, headset.ErrOrchestratorClosed):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
