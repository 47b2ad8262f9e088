package kubernetes

import (
	"context"
	"strings"
	"testing"

	authv1 "k8s.io/api/authorization/v1"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/client-go/kubernetes/fake"
	k8stesting "k8s.io/client-go/testing"
)

func newNamespace(name string) *corev1.Namespace {
	return &corev1.Namespace{ObjectMeta: metav1.ObjectMeta{Name: name}}
}

// allowVerbs makes SelfSubjectAccessReviews allow only the listed verbs.
func allowVerbs(client *fake.Clientset, verbs ...string) {
	client.PrependReactor("create", "selfsubjectaccessreviews", func(action k8stesting.Action) (bool, runtime.Object, error) {
		review := action.(k8stesting.CreateAction).GetObject().(*authv1.SelfSubjectAccessReview)
		for _, v := range verbs {
			if review.Spec.ResourceAttributes.Verb == v {
				review.Status.Allowed = true
			}
		}
		return true, review, nil
	})
}

func TestCheckStoreAccess_Allowed(t *testing.T) {
	client := fake.NewSimpleClientset(newNamespace("security"))
	allowVerbs(client, "get", "create", "update")

	if err := CheckStoreAccess(context.Background(), client, "security"); err != nil {
		t.Errorf("CheckStoreAccess() = %v; want nil", err)
	}
}

func TestCheckStoreAccess_MissingNamespace(t *testing.T) {
	client := fake.NewSimpleClientset()
	allowVerbs(client, "get", "create", "update")

	err := CheckStoreAccess(context.Background(), client, "security")
	if err == nil || !strings.Contains(err.Error(), `namespace "security"`) {
		t.Errorf("CheckStoreAccess() = %v; want missing namespace error", err)
	}
}

func TestCheckStoreAccess_DeniedVerb(t *testing.T) {
	client := fake.NewSimpleClientset(newNamespace("security"))
	allowVerbs(client, "get")

	err := CheckStoreAccess(context.Background(), client, "security")
	if err == nil || !strings.Contains(err.Error(), "not allowed to create") {
		t.Errorf("CheckStoreAccess() = %v; want create denied", err)
	}
}
