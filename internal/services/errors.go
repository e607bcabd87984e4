// Package services defines the business logic of the attribution engine.
// This file centralizes common service-level error values so that they can be
// consistently returned by service methods and checked by callers.
//
// These errors are intended for internal use by the service layer and translation
// into user-facing messages or HTTP status codes should be performed at the
// handler/controller layer.
package services

import (
	"errors"
	"fmt"
)

// Attribution-related errors.
var (
	// ErrClientNotFound indicates that the client being recomputed or read
	// does not exist. Nothing is written when it is returned.
	ErrClientNotFound = errors.New("client not found")

	// ErrUnsupportedRange is returned for a reporting window outside 7, 30
	// and 90 days. It is detected before any storage access.
	ErrUnsupportedRange = errors.New("unsupported window range")

	// ErrStorageFailure wraps any read or write error raised by the database
	// during a recompute. The transaction has been rolled back when it is
	// returned; the driver error stays reachable through errors.Is/As.
	ErrStorageFailure = errors.New("storage failure")
)

// storageErr wraps err in ErrStorageFailure unless it already is one.
func storageErr(err error) error {
	if err == nil || errors.Is(err, ErrStorageFailure) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrStorageFailure, err)
}
