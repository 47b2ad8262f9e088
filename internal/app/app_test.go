package app

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	authv1 "k8s.io/api/authorization/v1"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	k8sclient "k8s.io/client-go/kubernetes"
	"k8s.io/client-go/kubernetes/fake"
	k8stesting "k8s.io/client-go/testing"

	"github.com/pankaj-dahiya-devops/accountguard/internal/audit"
	"github.com/pankaj-dahiya-devops/accountguard/internal/config"
	"github.com/pankaj-dahiya-devops/accountguard/internal/connector"
	"github.com/pankaj-dahiya-devops/accountguard/internal/models"
	kube "github.com/pankaj-dahiya-devops/accountguard/internal/providers/kubernetes"
	"github.com/pankaj-dahiya-devops/accountguard/internal/providers/memory"
	"github.com/pankaj-dahiya-devops/accountguard/internal/store"
)

const postureYAML = `
mail:
  messages:
    - id: m1
      subject: "Your account will be suspended - verify immediately"
      from: "security@examp1e.com"
      unread: true
storage:
  files:
    - id: f1
      name: budget.xlsx
      mime_type: application/vnd.google-apps.spreadsheet
      permissions:
        - {id: owner, type: user, role: owner}
        - {id: anyone, type: anyone, role: writer}
`

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Defaults()
	cfg.Connector.Fixture = writeFile(t, "fixture.yaml", postureYAML)
	cfg.Store.Kind = "memory"
	cfg.Remediation.Delay = 0
	return cfg
}

func newTestApp(t *testing.T, cfg *config.Config, deps Deps) *App {
	t.Helper()
	a, err := New(context.Background(), cfg, nil, deps)
	require.NoError(t, err)
	t.Cleanup(a.Close)
	return a
}

// ── scan ─────────────────────────────────────────────────────────────────────

func TestScan_PersistsResult(t *testing.T) {
	a := newTestApp(t, testConfig(t), Deps{})
	ctx := context.Background()

	result, err := a.Scan(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.SeverityCounts{Critical: 1, High: 1, Medium: 2}, result.Counts)
	assert.Equal(t, 65, result.Score)

	latest, err := a.Latest(ctx)
	require.NoError(t, err)
	assert.Equal(t, result.ID, latest.ID)
	assert.Len(t, latest.Issues, 4)
}

func TestScan_SingleSource(t *testing.T) {
	a := newTestApp(t, testConfig(t), Deps{})

	result, err := a.Scan(context.Background(), models.SourceMail)
	require.NoError(t, err)
	require.Len(t, result.Issues, 1)
	assert.Equal(t, "email-m1", result.Issues[0].ID)
	assert.Equal(t, 90, result.Score)
}

func TestNew_InvalidPolicyRejected(t *testing.T) {
	cfg := testConfig(t)
	cfg.Scan.Policy = writeFile(t, "ag.yaml", "version: 1\nrules:\n  NO_SUCH_RULE:\n    enabled: false\n")

	_, err := New(context.Background(), cfg, nil, Deps{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid policy")
}

func TestNew_PolicyDisablesSource(t *testing.T) {
	cfg := testConfig(t)
	cfg.Scan.Policy = writeFile(t, "ag.yaml", "version: 1\nsources:\n  storage:\n    enabled: false\n")
	a := newTestApp(t, cfg, Deps{})

	result, err := a.Scan(context.Background())
	require.NoError(t, err)
	require.Len(t, result.Issues, 1)
	assert.Equal(t, models.SourceMail, result.Issues[0].Source)
}

// ── remediation ──────────────────────────────────────────────────────────────

func TestRemediate_SelectedIssueRemovedFromStoredResult(t *testing.T) {
	a := newTestApp(t, testConfig(t), Deps{})
	ctx := context.Background()
	_, err := a.Scan(ctx)
	require.NoError(t, err)

	report, err := a.Remediate(ctx, []string{"email-m1"}, false)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Total)
	assert.Equal(t, 1, report.Successful)
	assert.Equal(t, 0, report.Failed)

	latest, err := a.Latest(ctx)
	require.NoError(t, err)
	_, stillThere := latest.Issue("email-m1")
	assert.False(t, stillThere)
	assert.Equal(t, 75, latest.Score)
}

func TestRemediate_AllClearsEveryFixableIssue(t *testing.T) {
	a := newTestApp(t, testConfig(t), Deps{})
	ctx := context.Background()
	_, err := a.Scan(ctx)
	require.NoError(t, err)

	report, err := a.Remediate(ctx, nil, true)
	require.NoError(t, err)
	assert.Equal(t, 4, report.Total)
	assert.Equal(t, 4, report.Successful)

	latest, err := a.Latest(ctx)
	require.NoError(t, err)
	assert.Empty(t, latest.Issues)
	assert.Equal(t, 100, latest.Score)

	rescan, err := a.Scan(ctx)
	require.NoError(t, err)
	assert.Empty(t, rescan.Issues)
}

// scanningMail runs a scan right after each delete, while the remediation
// batch is still in progress.
type scanningMail struct {
	connector.MailConnector
	afterDelete func()
}

func (m scanningMail) DeleteMessage(ctx context.Context, id string) error {
	err := m.MailConnector.DeleteMessage(ctx, id)
	m.afterDelete()
	return err
}

func TestRemediate_KeepsScanStoredDuringBatch(t *testing.T) {
	cfg := testConfig(t)
	f, err := memory.LoadFixture(cfg.Connector.Fixture)
	require.NoError(t, err)
	conns := memory.New(f).Connectors()

	var (
		a       *App
		newScan *models.AnalysisResult
	)
	conns.Mail = scanningMail{MailConnector: conns.Mail, afterDelete: func() {
		r, err := a.Scan(context.Background())
		require.NoError(t, err)
		newScan = r
	}}
	a = newTestApp(t, cfg, Deps{Connectors: &conns})
	ctx := context.Background()

	first, err := a.Scan(ctx)
	require.NoError(t, err)

	report, err := a.Remediate(ctx, []string{"email-m1"}, false)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Successful)

	require.NotNil(t, newScan)
	latest, err := a.Latest(ctx)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, latest.ID)
	assert.Equal(t, newScan.ID, latest.ID)
	assert.Len(t, latest.Issues, 3, "storage issues from the newer scan must survive")
}

func TestRemediate_UnknownIssue(t *testing.T) {
	a := newTestApp(t, testConfig(t), Deps{})
	ctx := context.Background()
	_, err := a.Scan(ctx)
	require.NoError(t, err)

	_, err = a.Remediate(ctx, []string{"email-zzz"}, false)
	assert.ErrorIs(t, err, ErrUnknownIssue)
}

func TestRemediate_WithoutScan(t *testing.T) {
	a := newTestApp(t, testConfig(t), Deps{})
	_, err := a.Remediate(context.Background(), []string{"email-m1"}, false)
	assert.ErrorIs(t, err, store.ErrNoResult)
}

// ── events ───────────────────────────────────────────────────────────────────

type recordingPublisher struct {
	mu   sync.Mutex
	msgs []*nats.Msg
}

func (p *recordingPublisher) PublishMsg(m *nats.Msg) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.msgs = append(p.msgs, m)
	return nil
}

func (p *recordingPublisher) subjects() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []string
	for _, m := range p.msgs {
		out = append(out, m.Subject)
	}
	return out
}

func TestEvents_PublishedToNATS(t *testing.T) {
	cfg := testConfig(t)
	cfg.Events.NATSURL = "nats://bus.invalid:4222"

	pub := &recordingPublisher{}
	closed := false
	a := newTestApp(t, cfg, Deps{ConnectNATS: func(url string) (audit.Publisher, func(), error) {
		assert.Equal(t, "nats://bus.invalid:4222", url)
		return pub, func() { closed = true }, nil
	}})
	ctx := context.Background()

	_, err := a.Scan(ctx, models.SourceMail)
	require.NoError(t, err)
	_, err = a.Remediate(ctx, []string{"email-m1"}, false)
	require.NoError(t, err)

	assert.Equal(t, []string{"accountguard.scans", "accountguard.actions"}, pub.subjects())
	a.Close()
	assert.True(t, closed)
}

// ── configmap store ──────────────────────────────────────────────────────────

type fakeKube struct{ client *fake.Clientset }

func (f fakeKube) ClientsetForContext(string) (k8sclient.Interface, kube.ClusterInfo, error) {
	return f.client, kube.ClusterInfo{ContextName: "home-lab", Namespace: "security"}, nil
}

// newKubeClient returns a fake clientset with a "security" namespace in
// which only the given configmap verbs are allowed.
func newKubeClient(verbs ...string) *fake.Clientset {
	client := fake.NewSimpleClientset(&corev1.Namespace{ObjectMeta: metav1.ObjectMeta{Name: "security"}})
	client.PrependReactor("create", "selfsubjectaccessreviews", func(action k8stesting.Action) (bool, runtime.Object, error) {
		review := action.(k8stesting.CreateAction).GetObject().(*authv1.SelfSubjectAccessReview)
		for _, v := range verbs {
			if review.Spec.ResourceAttributes.Verb == v {
				review.Status.Allowed = true
			}
		}
		return true, review, nil
	})
	return client
}

func TestConfigMapStore_UsesContextNamespace(t *testing.T) {
	client := newKubeClient("get", "create", "update")

	cfg := testConfig(t)
	cfg.Store.Kind = "configmap"
	a := newTestApp(t, cfg, Deps{Kube: fakeKube{client: client}})
	ctx := context.Background()

	result, err := a.Scan(ctx)
	require.NoError(t, err)

	cm, err := client.CoreV1().ConfigMaps("security").Get(ctx, cfg.Store.Name, metav1.GetOptions{})
	require.NoError(t, err)
	assert.Equal(t, result.ID, cm.Annotations["accountguard.io/scan-id"])
}

func TestConfigMapStore_AccessDenied(t *testing.T) {
	client := newKubeClient("get")

	cfg := testConfig(t)
	cfg.Store.Kind = "configmap"
	_, err := New(context.Background(), cfg, nil, Deps{Kube: fakeKube{client: client}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "home-lab")
}
