// Package memory is an in-process provider backed by a Fixture. It serves
// the CLI's --fixture mode and every package test that needs connectors.
// State changes made through mutations are visible to later reads, so a
// remediate-then-rescan cycle behaves like a real account.
package memory

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/pankaj-dahiya-devops/accountguard/internal/connector"
	"github.com/pankaj-dahiya-devops/accountguard/internal/models"
)

const spamLabel = "SPAM"

// Provider holds mutable account state and records every call made to it.
type Provider struct {
	mu       sync.Mutex
	creds    connector.Credentials
	now      func() time.Time
	fixture  Fixture
	failures map[string]*failure
	calls    map[string]int
}

type failure struct {
	err       error
	remaining int // <= 0 means every call fails
}

// New returns a Provider seeded with a copy of f.
func New(f Fixture) *Provider {
	return &Provider{
		creds:    f.Credentials,
		now:      time.Now,
		fixture:  cloneFixture(f),
		failures: make(map[string]*failure),
		calls:    make(map[string]int),
	}
}

// Connectors returns a Set exposing every section present in the fixture.
func (p *Provider) Connectors() connector.Set {
	var set connector.Set
	if p.fixture.Mail != nil {
		set.Mail = mailView{p}
	}
	if p.fixture.Media != nil {
		set.Media = mediaView{p}
	}
	if p.fixture.Storage != nil {
		set.Storage = storageView{p}
	}
	if p.fixture.Calendar != nil {
		set.Calendar = calendarView{p}
	}
	if p.fixture.Identity != nil {
		set.Identity = identityView{p}
	}
	return set
}

// FailOn makes the next n calls to op fail with err. n <= 0 fails every call.
// op uses the "<source>.<Method>" form, e.g. "storage.GetPermissions".
func (p *Provider) FailOn(op string, n int, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failures[op] = &failure{err: err, remaining: n}
}

// SetClock replaces the clock used for credential expiry checks.
func (p *Provider) SetClock(now func() time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.now = now
}

// Calls returns how many times op was invoked.
func (p *Provider) Calls(op string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls[op]
}

// begin records a call to op and returns the error the call must fail with,
// if any. Callers hold p.mu.
func (p *Provider) begin(op string) error {
	p.calls[op]++
	if p.creds.Expired(p.now()) {
		return connector.Errorf(connector.KindUnauthorized, op, "credentials for %q expired", p.creds.Subject)
	}
	f, ok := p.failures[op]
	if !ok {
		return nil
	}
	if f.remaining > 0 {
		f.remaining--
		if f.remaining == 0 {
			delete(p.failures, op)
		}
	}
	var ce *connector.Error
	if errors.As(f.err, &ce) {
		return f.err
	}
	return connector.NewError(connector.KindUnknown, op, f.err)
}

func notFound(op, what, id string) error {
	return connector.Errorf(connector.KindNotFound, op, "%s %q not found", what, id)
}

// ── mail ─────────────────────────────────────────────────────────────────────

type mailView struct{ p *Provider }

func (v mailView) ListUnread(_ context.Context, limit int) ([]models.MessageRef, error) {
	v.p.mu.Lock()
	defer v.p.mu.Unlock()
	if err := v.p.begin("mail.ListUnread"); err != nil {
		return nil, err
	}
	var refs []models.MessageRef
	for _, m := range v.p.fixture.Mail.Messages {
		if !m.Unread || slices.Contains(m.Labels, spamLabel) {
			continue
		}
		if limit > 0 && len(refs) >= limit {
			break
		}
		refs = append(refs, models.MessageRef{ID: m.ID, ThreadID: m.ThreadID})
	}
	return refs, nil
}

func (v mailView) GetMessage(_ context.Context, id string) (*models.Message, error) {
	const op = "mail.GetMessage"
	v.p.mu.Lock()
	defer v.p.mu.Unlock()
	if err := v.p.begin(op); err != nil {
		return nil, err
	}
	i := v.p.messageIndex(id)
	if i < 0 {
		return nil, notFound(op, "message", id)
	}
	m := cloneMessage(v.p.fixture.Mail.Messages[i])
	if len(m.Headers) == 0 {
		m.Headers = []models.Header{{Name: "Subject", Value: m.Subject}, {Name: "From", Value: m.From}}
	}
	return &m, nil
}

func (v mailView) GetForwardingAddresses(context.Context) ([]models.ForwardingAddress, error) {
	v.p.mu.Lock()
	defer v.p.mu.Unlock()
	if err := v.p.begin("mail.GetForwardingAddresses"); err != nil {
		return nil, err
	}
	return slices.Clone(v.p.fixture.Mail.Forwarding), nil
}

func (v mailView) ListFilters(context.Context) ([]models.MailFilter, error) {
	v.p.mu.Lock()
	defer v.p.mu.Unlock()
	if err := v.p.begin("mail.ListFilters"); err != nil {
		return nil, err
	}
	return slices.Clone(v.p.fixture.Mail.Filters), nil
}

func (v mailView) DeleteMessage(_ context.Context, id string) error {
	const op = "mail.DeleteMessage"
	v.p.mu.Lock()
	defer v.p.mu.Unlock()
	if err := v.p.begin(op); err != nil {
		return err
	}
	i := v.p.messageIndex(id)
	if i < 0 {
		return notFound(op, "message", id)
	}
	v.p.fixture.Mail.Messages = slices.Delete(v.p.fixture.Mail.Messages, i, i+1)
	return nil
}

func (v mailView) MarkAsSpam(_ context.Context, id string) error {
	const op = "mail.MarkAsSpam"
	v.p.mu.Lock()
	defer v.p.mu.Unlock()
	if err := v.p.begin(op); err != nil {
		return err
	}
	i := v.p.messageIndex(id)
	if i < 0 {
		return notFound(op, "message", id)
	}
	m := &v.p.fixture.Mail.Messages[i]
	m.Labels = slices.DeleteFunc(m.Labels, func(l string) bool { return l == "INBOX" })
	if !slices.Contains(m.Labels, spamLabel) {
		m.Labels = append(m.Labels, spamLabel)
	}
	return nil
}

func (p *Provider) messageIndex(id string) int {
	return slices.IndexFunc(p.fixture.Mail.Messages, func(m models.Message) bool { return m.ID == id })
}

// Message returns the current state of a stored message.
func (p *Provider) Message(id string) (models.Message, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fixture.Mail == nil {
		return models.Message{}, false
	}
	i := p.messageIndex(id)
	if i < 0 {
		return models.Message{}, false
	}
	return cloneMessage(p.fixture.Mail.Messages[i]), true
}

// ── media ────────────────────────────────────────────────────────────────────

type mediaView struct{ p *Provider }

func (v mediaView) ListOwnedVideos(context.Context) ([]models.VideoSummary, error) {
	v.p.mu.Lock()
	defer v.p.mu.Unlock()
	if err := v.p.begin("media.ListOwnedVideos"); err != nil {
		return nil, err
	}
	out := make([]models.VideoSummary, 0, len(v.p.fixture.Media.Videos))
	for _, vid := range v.p.fixture.Media.Videos {
		out = append(out, models.VideoSummary{ID: vid.ID, Title: vid.Title})
	}
	return out, nil
}

func (v mediaView) GetVideoDetails(_ context.Context, id string) (*models.Video, error) {
	const op = "media.GetVideoDetails"
	v.p.mu.Lock()
	defer v.p.mu.Unlock()
	if err := v.p.begin(op); err != nil {
		return nil, err
	}
	i := v.p.videoIndex(id)
	if i < 0 {
		return nil, notFound(op, "video", id)
	}
	vid := v.p.fixture.Media.Videos[i]
	return &vid, nil
}

func (v mediaView) SetPrivacy(_ context.Context, id string, privacy models.MediaPrivacy) error {
	const op = "media.SetPrivacy"
	v.p.mu.Lock()
	defer v.p.mu.Unlock()
	if err := v.p.begin(op); err != nil {
		return err
	}
	i := v.p.videoIndex(id)
	if i < 0 {
		return notFound(op, "video", id)
	}
	v.p.fixture.Media.Videos[i].Privacy = privacy
	return nil
}

func (p *Provider) videoIndex(id string) int {
	return slices.IndexFunc(p.fixture.Media.Videos, func(v models.Video) bool { return v.ID == id })
}

// Video returns the current state of a stored video.
func (p *Provider) Video(id string) (models.Video, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fixture.Media == nil {
		return models.Video{}, false
	}
	i := p.videoIndex(id)
	if i < 0 {
		return models.Video{}, false
	}
	return p.fixture.Media.Videos[i], true
}

// ── storage ──────────────────────────────────────────────────────────────────

type storageView struct{ p *Provider }

func (v storageView) ListFiles(_ context.Context, pageSize int) ([]models.File, error) {
	v.p.mu.Lock()
	defer v.p.mu.Unlock()
	if err := v.p.begin("storage.ListFiles"); err != nil {
		return nil, err
	}
	var out []models.File
	for _, f := range v.p.fixture.Storage.Files {
		if pageSize > 0 && len(out) >= pageSize {
			break
		}
		file := f.File
		file.Shared = file.Shared || sharedBeyondOwner(f.Permissions)
		out = append(out, file)
	}
	return out, nil
}

func (v storageView) GetPermissions(_ context.Context, fileID string) ([]models.Permission, error) {
	const op = "storage.GetPermissions"
	v.p.mu.Lock()
	defer v.p.mu.Unlock()
	if err := v.p.begin(op); err != nil {
		return nil, err
	}
	i := v.p.fileIndex(fileID)
	if i < 0 {
		return nil, notFound(op, "file", fileID)
	}
	return slices.Clone(v.p.fixture.Storage.Files[i].Permissions), nil
}

func (v storageView) DeletePermission(_ context.Context, fileID, permID string) error {
	const op = "storage.DeletePermission"
	v.p.mu.Lock()
	defer v.p.mu.Unlock()
	if err := v.p.begin(op); err != nil {
		return err
	}
	f, j, err := v.p.permission(op, fileID, permID)
	if err != nil {
		return err
	}
	f.Permissions = slices.Delete(f.Permissions, j, j+1)
	return nil
}

func (v storageView) SetPermissionRole(_ context.Context, fileID, permID string, role models.PermissionRole) error {
	const op = "storage.SetPermissionRole"
	v.p.mu.Lock()
	defer v.p.mu.Unlock()
	if err := v.p.begin(op); err != nil {
		return err
	}
	f, j, err := v.p.permission(op, fileID, permID)
	if err != nil {
		return err
	}
	f.Permissions[j].Role = role
	return nil
}

func (p *Provider) fileIndex(id string) int {
	return slices.IndexFunc(p.fixture.Storage.Files, func(f FileFixture) bool { return f.ID == id })
}

func (p *Provider) permission(op, fileID, permID string) (*FileFixture, int, error) {
	i := p.fileIndex(fileID)
	if i < 0 {
		return nil, -1, notFound(op, "file", fileID)
	}
	f := &p.fixture.Storage.Files[i]
	j := slices.IndexFunc(f.Permissions, func(perm models.Permission) bool { return perm.ID == permID })
	if j < 0 {
		return nil, -1, notFound(op, "permission", fileID+"/"+permID)
	}
	return f, j, nil
}

// Permission returns the current state of a stored permission.
func (p *Provider) Permission(fileID, permID string) (models.Permission, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fixture.Storage == nil {
		return models.Permission{}, false
	}
	f, j, err := p.permission("", fileID, permID)
	if err != nil {
		return models.Permission{}, false
	}
	return f.Permissions[j], true
}

func sharedBeyondOwner(perms []models.Permission) bool {
	for _, perm := range perms {
		if perm.Role != models.RoleOwner {
			return true
		}
	}
	return false
}

// ── calendar ─────────────────────────────────────────────────────────────────

type calendarView struct{ p *Provider }

func (v calendarView) ListCalendars(context.Context) ([]models.Calendar, error) {
	v.p.mu.Lock()
	defer v.p.mu.Unlock()
	if err := v.p.begin("calendar.ListCalendars"); err != nil {
		return nil, err
	}
	out := make([]models.Calendar, 0, len(v.p.fixture.Calendar.Calendars))
	for _, c := range v.p.fixture.Calendar.Calendars {
		out = append(out, c.Calendar)
	}
	return out, nil
}

func (v calendarView) GetACL(_ context.Context, calendarID string) ([]models.ACLRule, error) {
	const op = "calendar.GetACL"
	v.p.mu.Lock()
	defer v.p.mu.Unlock()
	if err := v.p.begin(op); err != nil {
		return nil, err
	}
	if slices.Contains(v.p.fixture.Calendar.Forbidden, calendarID) {
		return nil, connector.Errorf(connector.KindForbidden, op, "calendar %q ACL is not readable", calendarID)
	}
	i := v.p.calendarIndex(calendarID)
	if i < 0 {
		return nil, notFound(op, "calendar", calendarID)
	}
	return slices.Clone(v.p.fixture.Calendar.Calendars[i].ACL), nil
}

func (v calendarView) DeleteACLRule(_ context.Context, calendarID, ruleID string) error {
	const op = "calendar.DeleteACLRule"
	v.p.mu.Lock()
	defer v.p.mu.Unlock()
	if err := v.p.begin(op); err != nil {
		return err
	}
	i := v.p.calendarIndex(calendarID)
	if i < 0 {
		return notFound(op, "calendar", calendarID)
	}
	c := &v.p.fixture.Calendar.Calendars[i]
	j := slices.IndexFunc(c.ACL, func(r models.ACLRule) bool { return r.ID == ruleID })
	if j < 0 {
		return notFound(op, "acl rule", calendarID+"/"+ruleID)
	}
	c.ACL = slices.Delete(c.ACL, j, j+1)
	return nil
}

func (p *Provider) calendarIndex(id string) int {
	return slices.IndexFunc(p.fixture.Calendar.Calendars, func(c CalendarEntry) bool { return c.ID == id })
}

// ACL returns the current ACL of a stored calendar.
func (p *Provider) ACL(calendarID string) ([]models.ACLRule, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fixture.Calendar == nil {
		return nil, false
	}
	i := p.calendarIndex(calendarID)
	if i < 0 {
		return nil, false
	}
	return slices.Clone(p.fixture.Calendar.Calendars[i].ACL), true
}

// ── identity ─────────────────────────────────────────────────────────────────

type identityView struct{ p *Provider }

func (v identityView) GetIdentity(context.Context) (*models.Identity, error) {
	v.p.mu.Lock()
	defer v.p.mu.Unlock()
	if err := v.p.begin("identity.GetIdentity"); err != nil {
		return nil, err
	}
	id := *v.p.fixture.Identity
	return &id, nil
}

// ── copying ──────────────────────────────────────────────────────────────────

func cloneMessage(m models.Message) models.Message {
	m.Labels = slices.Clone(m.Labels)
	m.Headers = slices.Clone(m.Headers)
	return m
}

func cloneFixture(f Fixture) Fixture {
	out := Fixture{Credentials: f.Credentials}
	if f.Mail != nil {
		mail := MailFixture{
			Forwarding: slices.Clone(f.Mail.Forwarding),
			Filters:    slices.Clone(f.Mail.Filters),
		}
		for _, m := range f.Mail.Messages {
			mail.Messages = append(mail.Messages, cloneMessage(m))
		}
		out.Mail = &mail
	}
	if f.Media != nil {
		out.Media = &MediaFixture{Videos: slices.Clone(f.Media.Videos)}
	}
	if f.Storage != nil {
		storage := StorageFixture{}
		for _, file := range f.Storage.Files {
			file.Permissions = slices.Clone(file.Permissions)
			storage.Files = append(storage.Files, file)
		}
		out.Storage = &storage
	}
	if f.Calendar != nil {
		cal := CalendarFixture{Forbidden: slices.Clone(f.Calendar.Forbidden)}
		for _, c := range f.Calendar.Calendars {
			c.ACL = slices.Clone(c.ACL)
			cal.Calendars = append(cal.Calendars, c)
		}
		out.Calendar = &cal
	}
	if f.Identity != nil {
		id := *f.Identity
		out.Identity = &id
	}
	return out
}
