package coverage

import (
	"github.com/samber/lo"
)

// SelectorSatisfies reports whether every key/value pair in selector is
// present with an equal value in target. The target may carry extra keys.
// An empty selector matches any target; this mirrors Kubernetes semantics,
// where a PDB with empty matchLabels selects every pod in its namespace.
func SelectorSatisfies(selector, target LabelSet) bool {
	for key, value := range selector {
		if targetValue, ok := target[key]; !ok || targetValue != value {
			return false
		}
	}
	return true
}

// FindCoveringPDB returns the first PDB in listing order whose selector is
// satisfied by the workload's pod labels, or nil when none matches. When
// several PDBs cover the same workload only the first is surfaced.
func FindCoveringPDB(workload Workload, pdbs []PDBRecord) *PDBRecord {
	for i := range pdbs {
		if SelectorSatisfies(pdbs[i].Selector, workload.PodLabels) {
			return &pdbs[i]
		}
	}
	return nil
}

// Classify produces one CoverageResult per workload, in input order. A
// namespace with no PDBs simply yields no candidates; every workload there
// comes back uncovered. The pass is pure, so re-running it on the same
// snapshot returns an identical sequence.
func Classify(workloads []Workload, pdbsByNamespace map[string][]PDBRecord) []CoverageResult {
	results := make([]CoverageResult, 0, len(workloads))
	for _, workload := range workloads {
		match := FindCoveringPDB(workload, pdbsByNamespace[workload.Namespace])
		result := CoverageResult{
			Workload:         workload,
			Covered:          match != nil,
			RequiredSelector: workload.PodLabels,
		}
		if match != nil {
			result.MatchedPDBName = match.Name
		}
		results = append(results, result)
	}
	return results
}

// Summarize counts covered and uncovered workloads.
func Summarize(results []CoverageResult) Summary {
	covered := lo.CountBy(results, func(r CoverageResult) bool { return r.Covered })
	return Summary{
		WithPDB:    covered,
		WithoutPDB: len(results) - covered,
	}
}
