package idhash

import (
	"crypto/sha256"
	"fmt"
	"strconv"

	"github.com/mr-tron/base58"

	"inventory-sweep-lab/internal/domain"
)

// ComputeParamsKey computes a deterministic key for a parameter set.
// Formula: base58(SHA256(k|alpha|hth|hsz)) with shortest round-trip float
// formatting, so equal sets always map to the same key across runs.
func ComputeParamsKey(p domain.ParameterSet) string {
	data := fmt.Sprintf("%s|%s|%s|%s",
		formatFloat(p.K),
		formatFloat(p.Alpha),
		formatFloat(p.HTh),
		formatFloat(p.HSz),
	)

	hash := sha256.Sum256([]byte(data))
	return base58.Encode(hash[:])
}

// ShortParamsKey returns the first n characters of the params key, for
// human-facing tables.
func ShortParamsKey(p domain.ParameterSet, n int) string {
	key := ComputeParamsKey(p)
	if n <= 0 || n >= len(key) {
		return key
	}
	return key[:n]
}

func formatFloat(v float64) string {
	// -0 and 0 are the same parameter value
	if v == 0 {
		v = 0
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}
