package vendors

import (
	"errors"
	"fmt"
)

var (
	// ErrTransport means the vendor's local service could not be reached or answered
	// with something other than a well-formed envelope. Usually the vendor software is
	// not installed or not running.
	ErrTransport = errors.New("vendors: transport failure")

	// ErrVendorRejected means the service answered with isError: true.
	ErrVendorRejected = errors.New("vendors: request rejected by vendor")

	// ErrNotActive is returned by commands issued to an implementation that is not activated.
	ErrNotActive = errors.New("vendors: implementation not active")

	// ErrUnexpectedResult means the envelope carried a Type_Name the caller did not ask for.
	ErrUnexpectedResult = errors.New("vendors: unexpected envelope result")
)

// TransportError wraps a network, status or decoding failure on a vendor endpoint.
type TransportError struct {
	Vendor   VendorID
	Endpoint string
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("vendors: %s %s: transport failure: %v", e.Vendor, e.Endpoint, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

func (e *TransportError) Is(target error) bool { return target == ErrTransport }

// RejectedError carries the vendor's description of a rejected request.
type RejectedError struct {
	Vendor      VendorID
	Endpoint    string
	Description string
}

func (e *RejectedError) Error() string {
	if e.Description == "" {
		return fmt.Sprintf("vendors: %s %s: rejected", e.Vendor, e.Endpoint)
	}
	return fmt.Sprintf("vendors: %s %s: rejected: %s", e.Vendor, e.Endpoint, e.Description)
}

func (e *RejectedError) Is(target error) bool { return target == ErrVendorRejected }
