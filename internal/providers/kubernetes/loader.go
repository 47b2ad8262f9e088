package kubernetes

import (
	"fmt"
	"os"
	"path/filepath"

	k8sclient "k8s.io/client-go/kubernetes"
	"k8s.io/client-go/tools/clientcmd"
)

// resolveKubeconfigPath prefers $KUBECONFIG and falls back to ~/.kube/config.
func resolveKubeconfigPath() string {
	if path := os.Getenv("KUBECONFIG"); path != "" {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".kube", "config")
}

// LoadClientset builds a clientset from the kubeconfig at path for the given
// context (empty = current context).
func LoadClientset(kubeconfigPath, contextName string) (k8sclient.Interface, ClusterInfo, error) {
	loadingRules := &clientcmd.ClientConfigLoadingRules{ExplicitPath: kubeconfigPath}
	overrides := &clientcmd.ConfigOverrides{}
	if contextName != "" {
		overrides.CurrentContext = contextName
	}
	cfg := clientcmd.NewNonInteractiveDeferredLoadingClientConfig(loadingRules, overrides)

	info, err := clusterInfo(cfg, contextName)
	if err != nil {
		return nil, ClusterInfo{}, fmt.Errorf("load kubeconfig %q: %w", kubeconfigPath, err)
	}

	restCfg, err := cfg.ClientConfig()
	if err != nil {
		return nil, ClusterInfo{}, fmt.Errorf("build REST config for context %q: %w", info.ContextName, err)
	}
	clientset, err := k8sclient.NewForConfig(restCfg)
	if err != nil {
		return nil, ClusterInfo{}, fmt.Errorf("build clientset for context %q: %w", info.ContextName, err)
	}
	return clientset, info, nil
}

func clusterInfo(cfg clientcmd.ClientConfig, contextName string) (ClusterInfo, error) {
	raw, err := cfg.RawConfig()
	if err != nil {
		return ClusterInfo{}, err
	}
	info := ClusterInfo{ContextName: raw.CurrentContext, Namespace: "default"}
	if contextName != "" {
		info.ContextName = contextName
	}
	if kctx, ok := raw.Contexts[info.ContextName]; ok {
		if kctx.Namespace != "" {
			info.Namespace = kctx.Namespace
		}
		if cluster, ok := raw.Clusters[kctx.Cluster]; ok {
			info.Server = cluster.Server
		}
	}
	return info, nil
}
