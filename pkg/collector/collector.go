package collector

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"

	"github.com/Nicolas-Richard/k8s-pdb-checker/pkg/coverage"
	"github.com/Nicolas-Richard/k8s-pdb-checker/pkg/kube"
)

// ErrMalformedWorkload marks a workload listing item missing a name,
// namespace, or pod template labels. Such items are excluded from
// classification and surfaced as warnings, never fatal.
var ErrMalformedWorkload = errors.New("malformed workload")

// ErrMalformedPDB marks a PDB missing a name, namespace, or selector.
var ErrMalformedPDB = errors.New("malformed PodDisruptionBudget")

// normalize builds a Workload from the fields shared by every kind. The
// label map is taken verbatim; an absent or empty map is malformed, since
// a workload whose pods carry no labels can never be selected by a PDB.
func normalize(kind, namespace, name string, podLabels map[string]string, replicas *int32) (coverage.Workload, error) {
	if namespace == "" || name == "" {
		return coverage.Workload{}, fmt.Errorf("%w: %s %q/%q is missing its name or namespace", ErrMalformedWorkload, kind, namespace, name)
	}
	if len(podLabels) == 0 {
		return coverage.Workload{}, fmt.Errorf("%w: %s %s/%s has no pod template labels", ErrMalformedWorkload, kind, namespace, name)
	}
	return coverage.Workload{
		Kind:      kind,
		Namespace: namespace,
		Name:      name,
		PodLabels: podLabels,
		Replicas:  replicas,
	}, nil
}

// CollectAll lists every supported workload kind and normalizes the items
// into a single sequence. The kind order is fixed (Deployments,
// StatefulSets, DaemonSets, Rollouts) so repeated runs against the same
// cluster state produce identical output. Malformed items become warnings.
func CollectAll(ctx context.Context, client *kube.Client) ([]coverage.Workload, []coverage.Warning, error) {
	workloads := []coverage.Workload{}
	warnings := []coverage.Warning{}

	appendItem := func(kind, namespace, name string, podLabels map[string]string, replicas *int32) {
		workload, err := normalize(kind, namespace, name, podLabels, replicas)
		if err != nil {
			warnings = append(warnings, coverage.Warning{
				Kind:      kind,
				Namespace: namespace,
				Name:      name,
				Reason:    err.Error(),
			})
			return
		}
		workloads = append(workloads, workload)
	}

	logrus.Info("Fetching Deployments...")
	deployments, err := client.Kubernetes.AppsV1().Deployments("").List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, nil, fmt.Errorf("listing Deployments: %w", err)
	}
	for _, item := range deployments.Items {
		appendItem(coverage.KindDeployment, item.Namespace, item.Name, item.Spec.Template.Labels, item.Spec.Replicas)
	}

	logrus.Info("Fetching StatefulSets...")
	statefulSets, err := client.Kubernetes.AppsV1().StatefulSets("").List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, nil, fmt.Errorf("listing StatefulSets: %w", err)
	}
	for _, item := range statefulSets.Items {
		appendItem(coverage.KindStatefulSet, item.Namespace, item.Name, item.Spec.Template.Labels, item.Spec.Replicas)
	}

	logrus.Info("Fetching DaemonSets...")
	daemonSets, err := client.Kubernetes.AppsV1().DaemonSets("").List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, nil, fmt.Errorf("listing DaemonSets: %w", err)
	}
	for _, item := range daemonSets.Items {
		// DaemonSets scale with nodes, not a replica count.
		appendItem(coverage.KindDaemonSet, item.Namespace, item.Name, item.Spec.Template.Labels, nil)
	}

	logrus.Info("Fetching Argo Rollouts...")
	rollouts, err := client.Dynamic.Resource(kube.RolloutGVR).Namespace("").List(ctx, metav1.ListOptions{})
	if err != nil {
		// Clusters without the Rollouts CRD are common; the rest of the
		// audit is still worth reporting.
		logrus.Warnf("Failed to fetch Argo Rollouts: %v", err)
	} else {
		for _, item := range rollouts.Items {
			labels, replicas := rolloutPodLabels(item)
			appendItem(coverage.KindRollout, item.GetNamespace(), item.GetName(), labels, replicas)
		}
	}

	return workloads, warnings, nil
}

// rolloutPodLabels digs the pod template labels out of an unstructured
// Rollout. Rollouts using workloadRef have no template of their own, so the
// selector's matchLabels stand in for the pod labels in that case.
func rolloutPodLabels(item unstructured.Unstructured) (map[string]string, *int32) {
	labels, found, err := unstructured.NestedStringMap(item.Object, "spec", "template", "metadata", "labels")
	if err != nil || !found || len(labels) == 0 {
		labels, _, _ = unstructured.NestedStringMap(item.Object, "spec", "selector", "matchLabels")
	}

	replicas := int32(1)
	if value, found, err := unstructured.NestedInt64(item.Object, "spec", "replicas"); err == nil && found {
		replicas = int32(value)
	}
	return labels, &replicas
}

// CollectPDBs lists every PodDisruptionBudget and groups the normalized
// records by namespace, preserving listing order within each namespace.
// A PDB without a selector cannot cover anything and becomes a warning; a
// selector with empty matchLabels is kept as an empty selector, which
// covers every workload in its namespace.
func CollectPDBs(ctx context.Context, client *kube.Client) (map[string][]coverage.PDBRecord, []coverage.Warning, error) {
	logrus.Info("Fetching PodDisruptionBudgets...")
	pdbs, err := client.Kubernetes.PolicyV1().PodDisruptionBudgets("").List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, nil, fmt.Errorf("listing PodDisruptionBudgets: %w", err)
	}

	byNamespace := map[string][]coverage.PDBRecord{}
	warnings := []coverage.Warning{}

	for _, item := range pdbs.Items {
		if item.Namespace == "" || item.Name == "" {
			warnings = append(warnings, coverage.Warning{
				Kind:      "PodDisruptionBudget",
				Namespace: item.Namespace,
				Name:      item.Name,
				Reason:    fmt.Sprintf("%v: missing name or namespace", ErrMalformedPDB),
			})
			continue
		}
		if item.Spec.Selector == nil {
			warnings = append(warnings, coverage.Warning{
				Kind:      "PodDisruptionBudget",
				Namespace: item.Namespace,
				Name:      item.Name,
				Reason:    fmt.Sprintf("%v: %s/%s has no selector", ErrMalformedPDB, item.Namespace, item.Name),
			})
			continue
		}

		selector := coverage.LabelSet{}
		for key, value := range item.Spec.Selector.MatchLabels {
			selector[key] = value
		}
		byNamespace[item.Namespace] = append(byNamespace[item.Namespace], coverage.PDBRecord{
			Namespace: item.Namespace,
			Name:      item.Name,
			Selector:  selector,
		})
	}

	return byNamespace, warnings, nil
}
