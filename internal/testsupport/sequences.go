package testsupport

import (
	"fmt"
	"sync/atomic"
	"time"
)

var (
	// Global counter for generating unique sequential IDs in tests
	testSequence uint64
)

func init() {
	// Seed from the clock so reruns against the same database do not collide
	testSequence = uint64(time.Now().UnixNano() % 1000000)
}

// NextSequence returns next unique sequence number
func NextSequence() uint64 {
	return atomic.AddUint64(&testSequence, 1)
}

// UniqueName generates a unique name with given prefix
// Example: UniqueName("test_table") -> "test_table_123456"
func UniqueName(prefix string) string {
	return fmt.Sprintf("%s_%d", prefix, NextSequence())
}

// UniqueCurrency generates a currency code that fits the 10 character column
// and never clashes with real ISO codes. Example: "T0123456"
func UniqueCurrency() string {
	return fmt.Sprintf("T%07d", NextSequence()%10000000)
}

// UniqueEvent generates a unique event title
func UniqueEvent(prefix string) string {
	return fmt.Sprintf("%s #%d", prefix, NextSequence())
}
