package services

import (
	"fmt"
	"math/rand"
	"sync"
	"time"
)

var (
	refMu      sync.Mutex
	refSeq     int
	seededRand = rand.New(rand.NewSource(time.Now().UnixNano()))
)

// generateReference builds a ledger reference like LED-482193057104217.
// Uniqueness is backed by the unique index on ledger_entries.reference.
func generateReference(userID uint) string {
	refMu.Lock()
	defer refMu.Unlock()

	refSeq = (refSeq + 1) % 1000
	nanoPart := time.Now().UnixNano() % 1000000
	randPart := seededRand.Intn(900000) + 100000

	return fmt.Sprintf("LED-%06d%06d%03d%d", nanoPart, randPart, refSeq, userID)
}
