package collector

import (
	"context"
	"fmt"

	"github.com/pankaj-dahiya-devops/accountguard/internal/connector"
	"github.com/pankaj-dahiya-devops/accountguard/internal/models"
)

// Mail reads up to opts.MaxUnread unread messages with their headers, the
// forwarding addresses, and the filters.
func Mail(ctx context.Context, c connector.MailConnector, opts Options) (*models.MailSnapshot, error) {
	snap := &models.MailSnapshot{}
	var p partial

	refs, err := c.ListUnread(ctx, opts.MaxUnread)
	if err != nil {
		err = fmt.Errorf("list unread messages: %w", err)
		if p.note(err) {
			return nil, err
		}
	}
	if len(refs) > opts.MaxUnread && opts.MaxUnread > 0 {
		refs = refs[:opts.MaxUnread]
	}

	msgs, skipped, err := fetchEach(ctx, opts.Concurrency, refs, func(ctx context.Context, ref models.MessageRef) (models.Message, error) {
		m, err := c.GetMessage(ctx, ref.ID)
		if err != nil {
			return models.Message{}, fmt.Errorf("get message %s: %w", ref.ID, err)
		}
		return *m, nil
	})
	if p.note(err) {
		return nil, err
	}
	snap.Messages, snap.Skipped = msgs, skipped

	snap.Forwarding, err = c.GetForwardingAddresses(ctx)
	if err != nil {
		err = fmt.Errorf("get forwarding addresses: %w", err)
		if p.note(err) {
			return nil, err
		}
	}

	snap.Filters, err = c.ListFilters(ctx)
	if err != nil {
		err = fmt.Errorf("list filters: %w", err)
		if p.note(err) {
			return nil, err
		}
	}

	return snap, p.err()
}

// Media reads the details of every owned video.
func Media(ctx context.Context, c connector.MediaConnector, opts Options) (*models.MediaSnapshot, error) {
	var p partial

	summaries, err := c.ListOwnedVideos(ctx)
	if err != nil {
		err = fmt.Errorf("list owned videos: %w", err)
		if p.note(err) {
			return nil, err
		}
	}

	videos, skipped, err := fetchEach(ctx, opts.Concurrency, summaries, func(ctx context.Context, s models.VideoSummary) (models.Video, error) {
		v, err := c.GetVideoDetails(ctx, s.ID)
		if err != nil {
			return models.Video{}, fmt.Errorf("get video %s: %w", s.ID, err)
		}
		return *v, nil
	})
	if p.note(err) {
		return nil, err
	}
	return &models.MediaSnapshot{Videos: videos, Skipped: skipped}, p.err()
}

// Storage reads one page of files and the permissions of every shared file.
func Storage(ctx context.Context, c connector.FileStorageConnector, opts Options) (*models.StorageSnapshot, error) {
	var p partial

	files, err := c.ListFiles(ctx, opts.PageSize)
	if err != nil {
		err = fmt.Errorf("list files: %w", err)
		if p.note(err) {
			return nil, err
		}
	}

	var shared []models.File
	for _, f := range files {
		if f.Shared {
			shared = append(shared, f)
		}
	}

	withPerms, skipped, err := fetchEach(ctx, opts.Concurrency, shared, func(ctx context.Context, f models.File) (models.SharedFile, error) {
		perms, err := c.GetPermissions(ctx, f.ID)
		if err != nil {
			return models.SharedFile{}, fmt.Errorf("get permissions for %s: %w", f.ID, err)
		}
		return models.SharedFile{File: f, Permissions: perms}, nil
	})
	if p.note(err) {
		return nil, err
	}
	return &models.StorageSnapshot{Files: withPerms, Skipped: skipped}, p.err()
}

// Calendar reads the ACL of every calendar. Calendars whose ACL is
// forbidden are skipped and counted.
func Calendar(ctx context.Context, c connector.CalendarConnector, opts Options) (*models.CalendarSnapshot, error) {
	var p partial

	cals, err := c.ListCalendars(ctx)
	if err != nil {
		err = fmt.Errorf("list calendars: %w", err)
		if p.note(err) {
			return nil, err
		}
	}

	acls, skipped, err := fetchEach(ctx, opts.Concurrency, cals, func(ctx context.Context, cal models.Calendar) (models.CalendarACL, error) {
		rules, err := c.GetACL(ctx, cal.ID)
		if err != nil {
			return models.CalendarACL{}, fmt.Errorf("get ACL for calendar %s: %w", cal.ID, err)
		}
		return models.CalendarACL{Calendar: cal, Rules: rules}, nil
	})
	if p.note(err) {
		return nil, err
	}
	return &models.CalendarSnapshot{Calendars: acls, Skipped: skipped}, p.err()
}

// Identity reads the authenticated principal.
func Identity(ctx context.Context, c connector.IdentityConnector) (*models.IdentitySnapshot, error) {
	id, err := c.GetIdentity(ctx)
	if err != nil {
		err = fmt.Errorf("get identity: %w", err)
		if classify(err) == outcomeSkip {
			return &models.IdentitySnapshot{}, nil
		}
		if classify(err) == outcomeAbort {
			return nil, err
		}
		return &models.IdentitySnapshot{}, err
	}
	return &models.IdentitySnapshot{Identity: id}, nil
}
