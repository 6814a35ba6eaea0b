// Package domain holds input rules shared by every transport.
package domain

import (
	"fmt"
	"regexp"
	"unicode/utf8"

	ports "github.com/ZanzyTHEbar/ai-counselor/relay/conversation/ports"
	"github.com/google/uuid"
)

const (
	MinMessageLength   = 2
	MaxMessageLength   = 5000
	MaxRequestIDLength = 255
)

var (
	userIDPattern    = regexp.MustCompile(`^[a-zA-Z0-9\-_]{1,36}$`)
	requestIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_\-]+$`)
)

// IsUserID reports whether s is an acceptable owner id.
func IsUserID(s string) bool {
	return userIDPattern.MatchString(s)
}

// IsMessage reports whether s has between 2 and 5000 characters.
func IsMessage(s string) bool {
	n := utf8.RuneCountInString(s)
	return n >= MinMessageLength && n <= MaxMessageLength
}

// IsUUID reports whether s parses as a UUID.
func IsUUID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}

// ValidateRequestID checks the request id header value. The returned error
// message is safe to show to clients.
func ValidateRequestID(s string) error {
	switch {
	case s == "":
		return fmt.Errorf("%w: 'ai-counselor-request-id' is required. A unique string is recommended if possible", ports.ErrValidationFailed)
	case !requestIDPattern.MatchString(s):
		return fmt.Errorf("%w: 'ai-counselor-request-id' contains invalid characters. Only alphabets, digits, '_', and '-' are allowed", ports.ErrValidationFailed)
	case len(s) > MaxRequestIDLength:
		return fmt.Errorf("%w: 'ai-counselor-request-id' should not exceed %d characters", ports.ErrValidationFailed, MaxRequestIDLength)
	}
	return nil
}

// NewRequestID generates a request id that satisfies ValidateRequestID.
func NewRequestID() string {
	return uuid.NewString()
}
