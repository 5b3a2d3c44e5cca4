package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/samber/lo"

	"github.com/Nicolas-Richard/k8s-pdb-checker/pkg/coverage"
)

// Report is the format for the JSON output file.
type Report struct {
	Results  []coverage.CoverageResult `json:"results"`
	Warnings []coverage.Warning        `json:"warnings"`
	Summary  coverage.Summary          `json:"summary"`
}

// FormatSelector renders a label set the way kubectl shows selectors,
// k1=v1,k2=v2, with keys sorted so the same labels always render the same.
func FormatSelector(labels coverage.LabelSet) string {
	keys := lo.Keys(labels)
	sort.Strings(keys)
	pairs := make([]string, 0, len(keys))
	for _, key := range keys {
		pairs = append(pairs, key+"="+labels[key])
	}
	return strings.Join(pairs, ",")
}

// WriteText prints one line per workload plus the final summary line.
// Covered workloads name the PDB protecting them; uncovered workloads show
// the selector a new PDB would need.
func WriteText(w io.Writer, results []coverage.CoverageResult, summary coverage.Summary, hideCovered bool) {
	for _, result := range results {
		if result.Covered {
			if hideCovered {
				continue
			}
			fmt.Fprintf(w, "✅ %s/%s -> %s\n", result.Workload.Namespace, result.Workload.Name, result.MatchedPDBName)
			continue
		}
		fmt.Fprintf(w, "❌ %s/%s (selector: %s)\n", result.Workload.Namespace, result.Workload.Name, FormatSelector(result.RequiredSelector))
	}
	fmt.Fprintf(w, "Summary: %d with PDBs, %d without\n", summary.WithPDB, summary.WithoutPDB)
}

// WriteJSONFile writes the report next to its destination first and then
// renames it into place, so a crashed run never leaves a truncated file.
func WriteJSONFile(path string, report Report) error {
	outputBytes, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("marshalling report: %w", err)
	}
	tempFile := path + ".tmp"
	if err := os.WriteFile(tempFile, outputBytes, 0644); err != nil {
		return fmt.Errorf("writing report: %w", err)
	}
	if err := os.Rename(tempFile, path); err != nil {
		return fmt.Errorf("renaming report into place: %w", err)
	}
	return nil
}
