// Package domain provides shared domain-level sentinel errors.
package domain

import "errors"

// ErrNoSitesConfigured indicates the site catalog is empty. Fatal at startup.
var ErrNoSitesConfigured = errors.New("no sites configured")

// ErrInvalidInput indicates a malformed or incomplete request.
var ErrInvalidInput = errors.New("invalid input")

// ErrUnknownValidation indicates the validation id does not exist.
var ErrUnknownValidation = errors.New("unknown validation id")

// ErrAlreadyResolved indicates the validation was already resolved by an
// earlier submission. The stored outcome is unchanged.
var ErrAlreadyResolved = errors.New("validation already resolved")

// ErrValidationExpired indicates the validation passed its TTL before a
// response arrived. The entry is kept for audit until eviction.
var ErrValidationExpired = errors.New("validation expired")

// ErrValidationTimeout indicates a waiter gave up on a pending validation
// because the TTL elapsed.
var ErrValidationTimeout = errors.New("validation timed out")

// ErrDuplicationTimeout indicates the content index did not answer within
// the configured deadline. Recovered locally as a degraded result.
var ErrDuplicationTimeout = errors.New("duplication check timed out")

// ErrDuplicationFault indicates the content index failed outright.
// Recovered locally as a degraded result.
var ErrDuplicationFault = errors.New("duplication check failed")
