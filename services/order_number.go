package services

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const orderNumberPrefix = "TLR"

// GenerateOrderNumber returns a human-readable order number such as TLR-20261018-3F9A0C1B
func GenerateOrderNumber(at time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return fmt.Sprintf("%s-%s-%s", orderNumberPrefix, at.UTC().Format("20060102"), suffix)
}
