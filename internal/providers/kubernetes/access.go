package kubernetes

import (
	"context"
	"fmt"

	authv1 "k8s.io/api/authorization/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	k8sclient "k8s.io/client-go/kubernetes"
)

// storeVerbs are the ConfigMap verbs the result store needs.
var storeVerbs = []string{"get", "create", "update"}

// CheckStoreAccess verifies that namespace exists and that the caller may
// read and write ConfigMaps in it.
func CheckStoreAccess(ctx context.Context, clientset k8sclient.Interface, namespace string) error {
	if _, err := clientset.CoreV1().Namespaces().Get(ctx, namespace, metav1.GetOptions{}); err != nil {
		return fmt.Errorf("get namespace %q: %w", namespace, err)
	}
	for _, verb := range storeVerbs {
		review := &authv1.SelfSubjectAccessReview{
			Spec: authv1.SelfSubjectAccessReviewSpec{
				ResourceAttributes: &authv1.ResourceAttributes{
					Namespace: namespace,
					Verb:      verb,
					Resource:  "configmaps",
				},
			},
		}
		resp, err := clientset.AuthorizationV1().SelfSubjectAccessReviews().Create(ctx, review, metav1.CreateOptions{})
		if err != nil {
			return fmt.Errorf("review %s configmaps in %q: %w", verb, namespace, err)
		}
		if !resp.Status.Allowed {
			return fmt.Errorf("not allowed to %s configmaps in namespace %q", verb, namespace)
		}
	}
	return nil
}
