package app

import (
	"github.com/google/uuid"
)

// IDGenerator mints opportunity identifiers. Injectable so tests get
// deterministic IDs.
type IDGenerator func() string

// NewUUID is the default IDGenerator.
func NewUUID() string {
	return uuid.NewString()
}
