package kube

import (
	"fmt"

	"k8s.io/apimachinery/pkg/runtime/schema"
	"k8s.io/client-go/dynamic"
	"k8s.io/client-go/kubernetes"
	_ "k8s.io/client-go/plugin/pkg/client/auth"
	ctrl "sigs.k8s.io/controller-runtime"
)

// RolloutGVR identifies the Argo Rollouts custom resource, which has no
// typed client in client-go and is listed through the dynamic interface.
var RolloutGVR = schema.GroupVersionResource{
	Group:    "argoproj.io",
	Version:  "v1alpha1",
	Resource: "rollouts",
}

// Client bundles the typed and dynamic interfaces plus the API server host
// for startup logging.
type Client struct {
	Kubernetes kubernetes.Interface
	Dynamic    dynamic.Interface
	Host       string
}

// GetClient resolves cluster access from the usual places (KUBECONFIG,
// ~/.kube/config, in-cluster service account) and returns a ready Client.
func GetClient() (*Client, error) {
	config, err := ctrl.GetConfig()
	if err != nil {
		return nil, fmt.Errorf("fetching KubeConfig: %w", err)
	}

	kube, err := kubernetes.NewForConfig(config)
	if err != nil {
		return nil, fmt.Errorf("creating Kubernetes client: %w", err)
	}

	dynamicClient, err := dynamic.NewForConfig(config)
	if err != nil {
		return nil, fmt.Errorf("creating Dynamic client: %w", err)
	}

	return &Client{
		Kubernetes: kube,
		Dynamic:    dynamicClient,
		Host:       config.Host,
	}, nil
}
