package coverage

// LabelSet is a plain key/value label mapping, either a pod template's
// labels or a PDB selector's matchLabels.
type LabelSet map[string]string

const (
	KindDeployment  = "Deployment"
	KindStatefulSet = "StatefulSet"
	KindDaemonSet   = "DaemonSet"
	KindRollout     = "Rollout"
)

// Workload is the normalized form of a pod controller, whatever its kind.
// Identity is (namespace, name, kind); instances are never mutated after
// collection.
type Workload struct {
	Kind      string   `json:"kind"`
	Namespace string   `json:"namespace"`
	Name      string   `json:"name"`
	PodLabels LabelSet `json:"pod_labels"`
	Replicas  *int32   `json:"replicas,omitempty"`
}

// PDBRecord is a normalized PodDisruptionBudget: just its identity and
// its equality-based selector.
type PDBRecord struct {
	Namespace string   `json:"namespace"`
	Name      string   `json:"name"`
	Selector  LabelSet `json:"selector"`
}

// CoverageResult classifies a single workload. RequiredSelector is always
// the workload's pod labels, so callers can render the selector a new PDB
// would need whether or not the workload is covered.
type CoverageResult struct {
	Workload         Workload `json:"workload"`
	Covered          bool     `json:"covered"`
	MatchedPDBName   string   `json:"matched_pdb_name,omitempty"`
	RequiredSelector LabelSet `json:"required_selector"`
}

// Warning records a structurally invalid item that was excluded from
// classification. It is surfaced to the caller, never fatal.
type Warning struct {
	Kind      string `json:"kind"`
	Namespace string `json:"namespace"`
	Name      string `json:"name"`
	Reason    string `json:"reason"`
}

// Summary is the final aggregate count over all classified workloads.
type Summary struct {
	WithPDB    int `json:"with_pdb"`
	WithoutPDB int `json:"without_pdb"`
}
