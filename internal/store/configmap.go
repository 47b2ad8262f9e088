package store

import (
	"context"
	"fmt"

	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	k8sclient "k8s.io/client-go/kubernetes"

	"github.com/pankaj-dahiya-devops/accountguard/internal/models"
)

const (
	configMapKey     = "result.json.zst"
	managedByLabel   = "app.kubernetes.io/managed-by"
	managedByValue   = "accountguard"
	scanIDAnnotation = "accountguard.io/scan-id"
)

// ConfigMapStore keeps the latest result in a ConfigMap's binary data.
type ConfigMapStore struct {
	client    k8sclient.Interface
	namespace string
	name      string
}

// NewConfigMapStore returns a store writing ConfigMap namespace/name.
func NewConfigMapStore(client k8sclient.Interface, namespace, name string) *ConfigMapStore {
	return &ConfigMapStore{client: client, namespace: namespace, name: name}
}

// Save implements Store. The ConfigMap is created on first use.
func (s *ConfigMapStore) Save(ctx context.Context, r *models.AnalysisResult) error {
	data, err := encode(r)
	if err != nil {
		return err
	}
	cms := s.client.CoreV1().ConfigMaps(s.namespace)

	cm, err := cms.Get(ctx, s.name, metav1.GetOptions{})
	if apierrors.IsNotFound(err) {
		cm = &corev1.ConfigMap{
			ObjectMeta: metav1.ObjectMeta{
				Name:      s.name,
				Namespace: s.namespace,
				Labels:    map[string]string{managedByLabel: managedByValue},
			},
		}
		setResult(cm, r.ID, data)
		if _, err := cms.Create(ctx, cm, metav1.CreateOptions{}); err != nil {
			return fmt.Errorf("create configmap %s/%s: %w", s.namespace, s.name, err)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("get configmap %s/%s: %w", s.namespace, s.name, err)
	}

	setResult(cm, r.ID, data)
	if _, err := cms.Update(ctx, cm, metav1.UpdateOptions{}); err != nil {
		return fmt.Errorf("update configmap %s/%s: %w", s.namespace, s.name, err)
	}
	return nil
}

// Latest implements Store.
func (s *ConfigMapStore) Latest(ctx context.Context) (*models.AnalysisResult, error) {
	cm, err := s.client.CoreV1().ConfigMaps(s.namespace).Get(ctx, s.name, metav1.GetOptions{})
	if apierrors.IsNotFound(err) {
		return nil, ErrNoResult
	}
	if err != nil {
		return nil, fmt.Errorf("get configmap %s/%s: %w", s.namespace, s.name, err)
	}
	data, ok := cm.BinaryData[configMapKey]
	if !ok {
		return nil, ErrNoResult
	}
	return decode(data)
}

func setResult(cm *corev1.ConfigMap, scanID string, data []byte) {
	if cm.BinaryData == nil {
		cm.BinaryData = make(map[string][]byte)
	}
	if cm.Annotations == nil {
		cm.Annotations = make(map[string]string)
	}
	cm.BinaryData[configMapKey] = data
	cm.Annotations[scanIDAnnotation] = scanID
}
