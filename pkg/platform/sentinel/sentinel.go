package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores and transport layers return
// these (optionally wrapped) so callers can translate them into domain errors.
//
// These represent factual states about resources, not validation failures:
// - ErrNotFound: the secret or entity does not exist in the store
// - ErrExpired: a credential has expired
// - ErrInvalidState: entity in wrong state for the requested operation
// - ErrUnavailable: service or resource temporarily unavailable
var (
	ErrNotFound     = errors.New("not found")
	ErrExpired      = errors.New("expired")
	ErrInvalidState = errors.New("invalid state")
	ErrUnavailable  = errors.New("unavailable")
)
