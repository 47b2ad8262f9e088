package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pankaj-dahiya-devops/accountguard/internal/connector"
	"github.com/pankaj-dahiya-devops/accountguard/internal/models"
)

const fixtureYAML = `
credentials:
  subject: alice@example.com
mail:
  messages:
    - id: m1
      subject: "Your account will be suspended"
      from: "security@examp1e.com"
      unread: true
    - id: m2
      subject: "lunch?"
      unread: false
  forwarding:
    - {email: "fwd@elsewhere.net", verification_status: accepted}
storage:
  files:
    - id: f1
      name: budget.xlsx
      mime_type: application/vnd.google-apps.spreadsheet
      permissions:
        - {id: owner, type: user, role: owner, email_address: alice@example.com}
        - {id: anyoneWithLink, type: anyone, role: writer}
    - id: f2
      name: notes.txt
      mime_type: text/plain
      permissions:
        - {id: owner, type: user, role: owner}
calendar:
  calendars:
    - id: primary
      summary: Alice
      acl:
        - {id: "default", role: reader, scope_type: default}
    - id: team
      summary: Team
  forbidden: [team]
`

func newTestProvider(t *testing.T) *Provider {
	t.Helper()
	f, err := ParseFixture([]byte(fixtureYAML))
	if err != nil {
		t.Fatalf("ParseFixture: %v", err)
	}
	return New(f)
}

func TestParseFixture_Sections(t *testing.T) {
	p := newTestProvider(t)
	set := p.Connectors()
	if set.Mail == nil || set.Storage == nil || set.Calendar == nil {
		t.Fatal("expected mail, storage and calendar connectors")
	}
	if set.Media != nil || set.Identity != nil {
		t.Error("media and identity are absent from the fixture and must stay nil")
	}
}

// ── mail ─────────────────────────────────────────────────────────────────────

func TestMail_ListUnreadAndHeaders(t *testing.T) {
	ctx := context.Background()
	mail := newTestProvider(t).Connectors().Mail

	refs, err := mail.ListUnread(ctx, 20)
	if err != nil {
		t.Fatalf("ListUnread: %v", err)
	}
	if len(refs) != 1 || refs[0].ID != "m1" {
		t.Fatalf("ListUnread = %v; want [m1]", refs)
	}
	msg, err := mail.GetMessage(ctx, "m1")
	if err != nil {
		t.Fatalf("GetMessage: %v", err)
	}
	if got := msg.Header("Subject"); got != "Your account will be suspended" {
		t.Errorf("Subject header = %q", got)
	}
}

func TestMail_DeleteIsVisibleAndNotFoundAfter(t *testing.T) {
	ctx := context.Background()
	p := newTestProvider(t)
	mail := p.Connectors().Mail

	if err := mail.DeleteMessage(ctx, "m1"); err != nil {
		t.Fatalf("DeleteMessage: %v", err)
	}
	if _, ok := p.Message("m1"); ok {
		t.Error("m1 still present after delete")
	}
	err := mail.DeleteMessage(ctx, "m1")
	if !connector.IsNotFound(err) {
		t.Errorf("second DeleteMessage = %v; want not_found", err)
	}
	if got := p.Calls("mail.DeleteMessage"); got != 2 {
		t.Errorf("Calls(mail.DeleteMessage) = %d; want 2", got)
	}
}

func TestMail_MarkAsSpamHidesFromUnread(t *testing.T) {
	ctx := context.Background()
	mail := newTestProvider(t).Connectors().Mail
	if err := mail.MarkAsSpam(ctx, "m1"); err != nil {
		t.Fatalf("MarkAsSpam: %v", err)
	}
	refs, _ := mail.ListUnread(ctx, 20)
	if len(refs) != 0 {
		t.Errorf("ListUnread after spam = %v; want empty", refs)
	}
}

// ── storage ──────────────────────────────────────────────────────────────────

func TestStorage_SharedFlagDerivedFromPermissions(t *testing.T) {
	files, err := newTestProvider(t).Connectors().Storage.ListFiles(context.Background(), 100)
	if err != nil {
		t.Fatalf("ListFiles: %v", err)
	}
	shared := map[string]bool{}
	for _, f := range files {
		shared[f.ID] = f.Shared
	}
	if !shared["f1"] {
		t.Error("f1 has an anyone permission and must be shared")
	}
	if shared["f2"] {
		t.Error("f2 has only its owner and must not be shared")
	}
}

func TestStorage_DowngradeThenDelete(t *testing.T) {
	ctx := context.Background()
	p := newTestProvider(t)
	storage := p.Connectors().Storage

	if err := storage.SetPermissionRole(ctx, "f1", "anyoneWithLink", models.RoleReader); err != nil {
		t.Fatalf("SetPermissionRole: %v", err)
	}
	perm, ok := p.Permission("f1", "anyoneWithLink")
	if !ok || perm.Role != models.RoleReader {
		t.Errorf("permission after downgrade = %+v; want role reader", perm)
	}
	if err := storage.DeletePermission(ctx, "f1", "anyoneWithLink"); err != nil {
		t.Fatalf("DeletePermission: %v", err)
	}
	if err := storage.SetPermissionRole(ctx, "f1", "anyoneWithLink", models.RoleReader); !connector.IsNotFound(err) {
		t.Errorf("SetPermissionRole on deleted permission = %v; want not_found", err)
	}
}

// ── calendar ─────────────────────────────────────────────────────────────────

func TestCalendar_ForbiddenACL(t *testing.T) {
	_, err := newTestProvider(t).Connectors().Calendar.GetACL(context.Background(), "team")
	if !connector.IsForbidden(err) {
		t.Errorf("GetACL(team) = %v; want forbidden", err)
	}
}

// ── failure injection ────────────────────────────────────────────────────────

func TestFailOn_CountedFailures(t *testing.T) {
	ctx := context.Background()
	p := newTestProvider(t)
	p.FailOn("mail.ListFilters", 1, connector.NewError(connector.KindTransient, "mail.ListFilters", nil))
	mail := p.Connectors().Mail

	if _, err := mail.ListFilters(ctx); connector.KindOf(err) != connector.KindTransient {
		t.Errorf("first ListFilters = %v; want transient", err)
	}
	if _, err := mail.ListFilters(ctx); err != nil {
		t.Errorf("second ListFilters = %v; want nil", err)
	}
}

func TestFailOn_PlainErrorBecomesUnknown(t *testing.T) {
	p := newTestProvider(t)
	p.FailOn("storage.ListFiles", 0, errors.New("boom"))
	_, err := p.Connectors().Storage.ListFiles(context.Background(), 10)
	if connector.KindOf(err) != connector.KindUnknown {
		t.Errorf("ListFiles = %v; want unknown kind", err)
	}
}

func TestExpiredCredentialsAreUnauthorized(t *testing.T) {
	f, _ := ParseFixture([]byte(fixtureYAML))
	f.Credentials.ExpiresAt = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	p := New(f)
	p.SetClock(func() time.Time { return f.Credentials.ExpiresAt.Add(time.Second) })

	_, err := p.Connectors().Mail.ListUnread(context.Background(), 20)
	if !connector.IsUnauthorized(err) {
		t.Errorf("ListUnread with expired credentials = %v; want unauthorized", err)
	}
}
