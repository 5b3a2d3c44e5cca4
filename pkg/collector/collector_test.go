package collector

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	policyv1 "k8s.io/api/policy/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime"

	"github.com/Nicolas-Richard/k8s-pdb-checker/pkg/coverage"
	"github.com/Nicolas-Richard/k8s-pdb-checker/pkg/kube"
)

func int32Ptr(i int32) *int32 {
	return &i
}

func newDeployment(namespace, name string, labels map[string]string, replicas int32) *appsv1.Deployment {
	return &appsv1.Deployment{
		ObjectMeta: metav1.ObjectMeta{Namespace: namespace, Name: name},
		Spec: appsv1.DeploymentSpec{
			Replicas: int32Ptr(replicas),
			Template: corev1.PodTemplateSpec{
				ObjectMeta: metav1.ObjectMeta{Labels: labels},
			},
		},
	}
}

func newRollout(namespace, name string, labels map[string]interface{}, replicas int64) *unstructured.Unstructured {
	return &unstructured.Unstructured{
		Object: map[string]interface{}{
			"apiVersion": "argoproj.io/v1alpha1",
			"kind":       "Rollout",
			"metadata": map[string]interface{}{
				"namespace": namespace,
				"name":      name,
			},
			"spec": map[string]interface{}{
				"replicas": replicas,
				"template": map[string]interface{}{
					"metadata": map[string]interface{}{
						"labels": labels,
					},
				},
			},
		},
	}
}

func newPDB(namespace, name string, selector *metav1.LabelSelector) *policyv1.PodDisruptionBudget {
	return &policyv1.PodDisruptionBudget{
		ObjectMeta: metav1.ObjectMeta{Namespace: namespace, Name: name},
		Spec:       policyv1.PodDisruptionBudgetSpec{Selector: selector},
	}
}

func TestNormalize(t *testing.T) {
	workload, err := normalize(coverage.KindDeployment, "ns1", "app1", map[string]string{"app": "app1"}, int32Ptr(2))
	require.NoError(t, err)
	assert.Equal(t, coverage.KindDeployment, workload.Kind)
	assert.Equal(t, "ns1", workload.Namespace)
	assert.Equal(t, "app1", workload.Name)
	assert.Equal(t, coverage.LabelSet{"app": "app1"}, workload.PodLabels)

	_, err = normalize(coverage.KindDeployment, "ns1", "", map[string]string{"app": "app1"}, nil)
	assert.ErrorIs(t, err, ErrMalformedWorkload)

	_, err = normalize(coverage.KindDeployment, "", "app1", map[string]string{"app": "app1"}, nil)
	assert.ErrorIs(t, err, ErrMalformedWorkload)

	_, err = normalize(coverage.KindDeployment, "ns1", "app1", nil, nil)
	assert.ErrorIs(t, err, ErrMalformedWorkload)

	_, err = normalize(coverage.KindDeployment, "ns1", "app1", map[string]string{}, nil)
	assert.ErrorIs(t, err, ErrMalformedWorkload)
}

func TestCollectAllKindOrder(t *testing.T) {
	client := kube.NewFakeClient(
		[]runtime.Object{
			newDeployment("ns1", "web", map[string]string{"app": "web"}, 3),
			&appsv1.StatefulSet{
				ObjectMeta: metav1.ObjectMeta{Namespace: "ns1", Name: "db"},
				Spec: appsv1.StatefulSetSpec{
					Replicas: int32Ptr(2),
					Template: corev1.PodTemplateSpec{
						ObjectMeta: metav1.ObjectMeta{Labels: map[string]string{"app": "db"}},
					},
				},
			},
			&appsv1.DaemonSet{
				ObjectMeta: metav1.ObjectMeta{Namespace: "kube-system", Name: "node-agent"},
				Spec: appsv1.DaemonSetSpec{
					Template: corev1.PodTemplateSpec{
						ObjectMeta: metav1.ObjectMeta{Labels: map[string]string{"app": "node-agent"}},
					},
				},
			},
		},
		newRollout("ns2", "canary", map[string]interface{}{"app": "canary"}, 4),
	)

	workloads, warnings, err := CollectAll(context.Background(), client)
	require.NoError(t, err)
	assert.Empty(t, warnings)
	require.Len(t, workloads, 4)

	assert.Equal(t, coverage.KindDeployment, workloads[0].Kind)
	assert.Equal(t, "web", workloads[0].Name)
	assert.Equal(t, int32(3), *workloads[0].Replicas)

	assert.Equal(t, coverage.KindStatefulSet, workloads[1].Kind)
	assert.Equal(t, "db", workloads[1].Name)

	assert.Equal(t, coverage.KindDaemonSet, workloads[2].Kind)
	assert.Equal(t, "node-agent", workloads[2].Name)
	assert.Nil(t, workloads[2].Replicas)

	assert.Equal(t, coverage.KindRollout, workloads[3].Kind)
	assert.Equal(t, "canary", workloads[3].Name)
	assert.Equal(t, coverage.LabelSet{"app": "canary"}, workloads[3].PodLabels)
	assert.Equal(t, int32(4), *workloads[3].Replicas)
}

func TestCollectAllMalformedWorkloadBecomesWarning(t *testing.T) {
	client := kube.NewFakeClient([]runtime.Object{
		newDeployment("ns1", "good", map[string]string{"app": "good"}, 1),
		newDeployment("ns1", "no-labels", nil, 1),
	})

	workloads, warnings, err := CollectAll(context.Background(), client)
	require.NoError(t, err)

	require.Len(t, workloads, 1)
	assert.Equal(t, "good", workloads[0].Name)

	require.Len(t, warnings, 1)
	assert.Equal(t, coverage.KindDeployment, warnings[0].Kind)
	assert.Equal(t, "no-labels", warnings[0].Name)
	assert.Contains(t, warnings[0].Reason, "no pod template labels")
}

func TestRolloutFallsBackToSelectorLabels(t *testing.T) {
	// Rollouts using workloadRef carry no pod template of their own.
	rollout := &unstructured.Unstructured{
		Object: map[string]interface{}{
			"apiVersion": "argoproj.io/v1alpha1",
			"kind":       "Rollout",
			"metadata": map[string]interface{}{
				"namespace": "ns1",
				"name":      "ref-rollout",
			},
			"spec": map[string]interface{}{
				"selector": map[string]interface{}{
					"matchLabels": map[string]interface{}{"app": "referenced"},
				},
			},
		},
	}
	client := kube.NewFakeClient(nil, rollout)

	workloads, warnings, err := CollectAll(context.Background(), client)
	require.NoError(t, err)
	assert.Empty(t, warnings)
	require.Len(t, workloads, 1)
	assert.Equal(t, coverage.LabelSet{"app": "referenced"}, workloads[0].PodLabels)
	// No spec.replicas defaults to 1, matching the Rollouts API default.
	assert.Equal(t, int32(1), *workloads[0].Replicas)
}

func TestCollectPDBsGroupsByNamespace(t *testing.T) {
	client := kube.NewFakeClient([]runtime.Object{
		newPDB("ns1", "pdb1", &metav1.LabelSelector{MatchLabels: map[string]string{"app": "app1"}}),
		newPDB("ns2", "pdb2", &metav1.LabelSelector{MatchLabels: map[string]string{"app": "app2"}}),
	})

	byNamespace, warnings, err := CollectPDBs(context.Background(), client)
	require.NoError(t, err)
	assert.Empty(t, warnings)
	require.Len(t, byNamespace, 2)

	require.Len(t, byNamespace["ns1"], 1)
	assert.Equal(t, "pdb1", byNamespace["ns1"][0].Name)
	assert.Equal(t, coverage.LabelSet{"app": "app1"}, byNamespace["ns1"][0].Selector)

	require.Len(t, byNamespace["ns2"], 1)
	assert.Equal(t, "pdb2", byNamespace["ns2"][0].Name)
}

func TestCollectPDBsMissingSelectorBecomesWarning(t *testing.T) {
	client := kube.NewFakeClient([]runtime.Object{
		newPDB("ns1", "broken", nil),
	})

	byNamespace, warnings, err := CollectPDBs(context.Background(), client)
	require.NoError(t, err)
	assert.Empty(t, byNamespace)
	require.Len(t, warnings, 1)
	assert.Equal(t, "PodDisruptionBudget", warnings[0].Kind)
	assert.Equal(t, "broken", warnings[0].Name)
}

func TestCollectPDBsEmptyMatchLabelsIsKept(t *testing.T) {
	client := kube.NewFakeClient([]runtime.Object{
		newPDB("ns1", "catch-all", &metav1.LabelSelector{}),
	})

	byNamespace, warnings, err := CollectPDBs(context.Background(), client)
	require.NoError(t, err)
	assert.Empty(t, warnings)
	require.Len(t, byNamespace["ns1"], 1)
	assert.Empty(t, byNamespace["ns1"][0].Selector)
}
