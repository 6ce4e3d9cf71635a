package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// NewOrderNumber returns a human-readable, time+random order number.
// Collisions are probabilistic only; the column keeps a unique index as the
// backstop.
func NewOrderNumber() string {
	return fmt.Sprintf("ORD-%s-%s", time.Now().Format("20060102150405"), randomSuffix(6))
}

// NewTransactionNumber returns a provider-agnostic transaction number used
// as the external correlation token, independent of the primary key.
func NewTransactionNumber() string {
	return fmt.Sprintf("TXN-%s-%s", time.Now().Format("20060102150405"), randomSuffix(8))
}

func randomSuffix(n int) string {
	s := strings.ReplaceAll(uuid.NewString(), "-", "")
	if n > len(s) {
		n = len(s)
	}
	return strings.ToUpper(s[:n])
}
