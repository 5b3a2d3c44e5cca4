package kube

import (
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/runtime/schema"
	dynamicFake "k8s.io/client-go/dynamic/fake"
	"k8s.io/client-go/kubernetes/fake"
)

// NewFakeClient builds a Client backed by fake clientsets for tests.
// Typed objects (Deployments, StatefulSets, DaemonSets, PDBs) are seeded
// into the typed fake; rollouts must be *unstructured.Unstructured and go
// into the dynamic fake.
func NewFakeClient(typed []runtime.Object, rollouts ...runtime.Object) *Client {
	scheme := runtime.NewScheme()
	listKinds := map[schema.GroupVersionResource]string{
		RolloutGVR: "RolloutList",
	}
	dynamicClient := dynamicFake.NewSimpleDynamicClientWithCustomListKinds(scheme, listKinds, rollouts...)

	return &Client{
		Kubernetes: fake.NewSimpleClientset(typed...),
		Dynamic:    dynamicClient,
		Host:       "https://fake.cluster.local",
	}
}
