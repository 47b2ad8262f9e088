// Package kubernetes connects to the cluster that hosts the ConfigMap result
// store.
package kubernetes

import k8sclient "k8s.io/client-go/kubernetes"

// ClusterInfo identifies the cluster and namespace a clientset targets.
type ClusterInfo struct {
	// ContextName is the kubeconfig context used to connect.
	ContextName string

	// Server is the API server URL resolved from the kubeconfig.
	Server string

	// Namespace is the context's namespace, or "default" when unset.
	Namespace string
}

// ClientProvider builds clientsets for kubeconfig contexts. Tests inject a
// provider returning a fake clientset.
type ClientProvider interface {
	// ClientsetForContext returns a clientset for contextName. An empty name
	// selects the kubeconfig's current context.
	ClientsetForContext(contextName string) (k8sclient.Interface, ClusterInfo, error)
}

// DefaultClientProvider reads $KUBECONFIG or ~/.kube/config.
type DefaultClientProvider struct {
	// Path overrides the kubeconfig location when set.
	Path string
}

// ClientsetForContext implements ClientProvider.
func (p DefaultClientProvider) ClientsetForContext(contextName string) (k8sclient.Interface, ClusterInfo, error) {
	path := p.Path
	if path == "" {
		path = resolveKubeconfigPath()
	}
	return LoadClientset(path, contextName)
}
