package reporting

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os/exec"
	"strings"

	"inventory-sweep-lab/internal/domain"
)

// GeneratorVersion is stamped into every report.
const GeneratorVersion = "1.0.0"

// ReproducibilityMetadata identifies the inputs a report was built from.
type ReproducibilityMetadata struct {
	GeneratorVersion string
	DataVersion      string // short hash of the result tables
	CommitHash       string
	ReplayCommand    string
}

// ComputeDataVersion hashes the rows of tables in order. NaN t-stats hash as
// "NaN" so an undefined statistic is stable across runs.
func ComputeDataVersion(tables ...*domain.ResultTable) string {
	h := sha256.New()
	for i, t := range tables {
		fmt.Fprintf(h, "TABLE %d\n", i)
		if t == nil {
			continue
		}
		for _, r := range t.Rows {
			fmt.Fprintf(h, "%s|%.9g|%.9g|%.9g|%s|%d\n",
				r.Params, r.MeanInvVol, r.MeanControlledPnL, r.StdControlledPnL,
				formatTStat(r), r.NSeeds)
		}
		for _, f := range t.Failures {
			fmt.Fprintf(h, "FAIL %s|%d\n", f.Params, f.Seed)
		}
	}
	return hex.EncodeToString(h.Sum(nil))[:12]
}

// GitCommitHash returns the current short commit hash or "unknown" outside a
// git checkout.
func GitCommitHash() string {
	cmd := exec.Command("git", "rev-parse", "--short", "HEAD")
	var out bytes.Buffer
	cmd.Stdout = &out
	if err := cmd.Run(); err != nil {
		return "unknown"
	}
	return strings.TrimSpace(out.String())
}
