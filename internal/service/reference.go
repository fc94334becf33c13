package service

import (
	"encoding/hex"
	"strings"

	"github.com/google/uuid"
)

// referencePrefix starts every booking reference, e.g. BK-9F86D081.
const referencePrefix = "BK-"

// maxReferenceAttempts bounds regeneration after unique-index collisions.
const maxReferenceAttempts = 3

// NewBookingReference returns "BK-" followed by 8 upper-case hex characters
// taken from a random (v4) UUID.
func NewBookingReference() string {
	id := uuid.New()
	return referencePrefix + strings.ToUpper(hex.EncodeToString(id[:4]))
}
