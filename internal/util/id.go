package util

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// NewDefinitionID returns "<unix millis>-<6 hex chars>". The millisecond
// prefix keeps ids roughly ordered by creation.
func NewDefinitionID(now time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:6]
	return fmt.Sprintf("%d-%s", now.UnixMilli(), suffix)
}
