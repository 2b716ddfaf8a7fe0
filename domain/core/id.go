package core

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ID represents a domain identifier
type ID string

// NewID creates a new unique identifier using UUID v7 for time-ordered generation
func NewID() ID {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	return ID(id.String())
}

// String returns the string representation
func (id ID) String() string {
	return string(id)
}

// IsEmpty checks if the ID is empty
func (id ID) IsEmpty() bool {
	return id == ""
}

// RunID identifies a single pipeline execution. Unlike ID it is derived
// from the seed and hashes rather than drawn at random.
type RunID string

func (id RunID) String() string { return string(id) }

// NewRunID builds "run-" followed by the first 16 hex chars of
// sha256("seed:configHash:policyHash:createdUTC").
func NewRunID(seed int64, config ConfigHash, policy PolicyHash, createdUTC string) RunID {
	payload := fmt.Sprintf("%d:%s:%s:%s", seed, config, policy, createdUTC)
	return RunID("run-" + NewHash([]byte(payload)).Short(16))
}

// ParseRunID parses a string into RunID
func ParseRunID(s string) (RunID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", fmt.Errorf("run ID cannot be empty")
	}
	if !strings.HasPrefix(s, "run-") {
		return "", fmt.Errorf("run ID %q must start with run-", s)
	}
	return RunID(s), nil
}
