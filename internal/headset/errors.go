package headset

import "errors"

var (
	ErrUnknownVendor      = errors.New("headset: unknown vendor")
	ErrNoCall             = errors.New("headset: no current call")
	ErrCallInProgress     = errors.New("headset: a call is already in progress")
	ErrCallNotConnected   = errors.New("headset: call is not connected")
	ErrInvalidCall        = errors.New("headset: conversation id is required")
	ErrOrchestratorClosed = errors.New("headset: orchestrator closed")
)
