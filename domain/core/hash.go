package core

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
)

// Hash represents a cryptographic hash
type Hash string

// NewHash creates a new hash from data
func NewHash(data []byte) Hash {
	sum := sha256.Sum256(data)
	return Hash(hex.EncodeToString(sum[:]))
}

// String returns the string representation
func (h Hash) String() string {
	return string(h)
}

// IsEmpty checks if the hash is empty
func (h Hash) IsEmpty() bool {
	return h == ""
}

// Short returns the first 12 hex characters, for log lines.
func (h Hash) Short() string {
	if len(h) <= 12 {
		return string(h)
	}
	return string(h[:12])
}

// ComputeRunFingerprint hashes everything that determines a simulation's
// output: the procedure kind, the root seed, the trial count and the
// procedure parameters. Two runs with equal fingerprints must produce
// identical distributions.
func ComputeRunFingerprint(kind string, seed int64, trials int, params map[string]interface{}) Hash {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var data strings.Builder
	fmt.Fprintf(&data, "%s|%d|%d", kind, seed, trials)
	for _, key := range keys {
		fmt.Fprintf(&data, "|%s=%v", key, params[key])
	}

	return NewHash([]byte(data.String()))
}
