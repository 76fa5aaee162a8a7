package model

import (
	"strings"

	"github.com/google/uuid"
)

// NewSessionID returns a fresh 32-character lowercase hex token used as the
// backend thread_id.
func NewSessionID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}
