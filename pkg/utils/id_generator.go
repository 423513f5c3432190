// Package utils provides shared helpers used across the application: id and
// OTP generation and the fare calculator.
package utils

import (
	"strings"

	"github.com/google/uuid"
)

// TrackingPrefix starts every public tracking code.
const TrackingPrefix = "UT-"

// GenerateID creates a new UUID v4 string for use as an entity identifier.
func GenerateID() string {
	return uuid.New().String()
}

// GenerateTrackingID returns a short public code such as "UT-3F9A12C0". It is
// the first eight hex digits of a fresh UUID, upper-cased.
func GenerateTrackingID() string {
	hex := strings.ReplaceAll(uuid.New().String(), "-", "")
	return TrackingPrefix + strings.ToUpper(hex[:8])
}
