// Package awsstorage exposes the objects of one S3 bucket as a
// FileStorageConnector. Object ACL grants become sharing permissions:
// AllUsers is "anyone", AuthenticatedUsers is "domain", and canonical or
// email grantees are "user".
package awsstorage

import (
	"context"
	"fmt"
	"mime"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/pankaj-dahiya-devops/accountguard/internal/connector"
	"github.com/pankaj-dahiya-devops/accountguard/internal/models"
	"github.com/pankaj-dahiya-devops/accountguard/internal/providers/aws/common"
)

const (
	allUsersURI           = "http://acs.amazonaws.com/groups/global/AllUsers"
	authenticatedUsersURI = "http://acs.amazonaws.com/groups/global/AuthenticatedUsers"
)

var _ connector.FileStorageConnector = (*Connector)(nil)

// Connector implements connector.FileStorageConnector for one bucket.
type Connector struct {
	client common.S3Client
	bucket string
}

// New returns a connector over bucket.
func New(client common.S3Client, bucket string) *Connector {
	return &Connector{client: client, bucket: bucket}
}

// ListFiles returns up to pageSize objects. A listing carries no ACL data,
// so every object is reported as shared and has its grants inspected.
func (c *Connector) ListFiles(ctx context.Context, pageSize int) ([]models.File, error) {
	in := &s3.ListObjectsV2Input{Bucket: aws.String(c.bucket)}
	if pageSize > 0 {
		in.MaxKeys = aws.Int32(int32(pageSize))
	}
	out, err := c.client.ListObjectsV2(ctx, in)
	if err != nil {
		return nil, common.Classify("s3.ListObjectsV2", err)
	}

	files := make([]models.File, 0, len(out.Contents))
	for _, obj := range out.Contents {
		key := aws.ToString(obj.Key)
		if strings.HasSuffix(key, "/") {
			continue
		}
		files = append(files, models.File{
			ID:       key,
			Name:     path.Base(key),
			MimeType: mimeType(key),
			Shared:   true,
		})
	}
	return files, nil
}

// GetPermissions returns one permission per ACL grant.
func (c *Connector) GetPermissions(ctx context.Context, fileID string) ([]models.Permission, error) {
	acl, err := c.acl(ctx, "s3.GetObjectAcl", fileID)
	if err != nil {
		return nil, err
	}
	owner := aws.ToString(ownerID(acl.Owner))
	perms := make([]models.Permission, 0, len(acl.Grants))
	for _, g := range acl.Grants {
		perms = append(perms, toPermission(g, owner))
	}
	return perms, nil
}

// DeletePermission removes the grant permID from the object's ACL.
func (c *Connector) DeletePermission(ctx context.Context, fileID, permID string) error {
	const op = "s3.DeletePermission"
	return c.rewrite(ctx, op, fileID, permID, func(grants []types.Grant, i int) []types.Grant {
		return append(grants[:i:i], grants[i+1:]...)
	})
}

// SetPermissionRole replaces the grant permID with one of the given role.
func (c *Connector) SetPermissionRole(ctx context.Context, fileID, permID string, role models.PermissionRole) error {
	const op = "s3.SetPermissionRole"
	perm, ok := s3Permission(role)
	if !ok {
		return connector.Errorf(connector.KindUnknown, op, "role %q has no S3 equivalent", role)
	}
	return c.rewrite(ctx, op, fileID, permID, func(grants []types.Grant, i int) []types.Grant {
		replaced := grants[i]
		replaced.Permission = perm
		if grantID(replaced) == grantID(grants[i]) {
			return grants
		}
		out := make([]types.Grant, 0, len(grants))
		for j, g := range grants {
			switch {
			case j != i:
				out = append(out, g)
			case !hasGrant(grants, replaced):
				out = append(out, replaced)
			}
		}
		return out
	})
}

// rewrite reads the ACL, applies edit to the grant identified by permID, and
// writes the result back.
func (c *Connector) rewrite(ctx context.Context, op, fileID, permID string, edit func([]types.Grant, int) []types.Grant) error {
	acl, err := c.acl(ctx, op, fileID)
	if err != nil {
		return err
	}
	idx := -1
	for i, g := range acl.Grants {
		if grantID(g) == permID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return connector.Errorf(connector.KindNotFound, op, "grant %q not found on %s", permID, fileID)
	}

	_, err = c.client.PutObjectAcl(ctx, &s3.PutObjectAclInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(fileID),
		AccessControlPolicy: &types.AccessControlPolicy{
			Owner:  acl.Owner,
			Grants: edit(acl.Grants, idx),
		},
	})
	if err != nil {
		return common.Classify(op, fmt.Errorf("put ACL for %s: %w", fileID, err))
	}
	return nil
}

func (c *Connector) acl(ctx context.Context, op, fileID string) (*s3.GetObjectAclOutput, error) {
	out, err := c.client.GetObjectAcl(ctx, &s3.GetObjectAclInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(fileID),
	})
	if err != nil {
		return nil, common.Classify(op, fmt.Errorf("get ACL for %s: %w", fileID, err))
	}
	return out, nil
}

func ownerID(o *types.Owner) *string {
	if o == nil {
		return nil
	}
	return o.ID
}

// grantID identifies a grant by grantee and permission, e.g. "AllUsers:READ".
func grantID(g types.Grant) string {
	return granteeKey(g.Grantee) + ":" + string(g.Permission)
}

func granteeKey(ge *types.Grantee) string {
	if ge == nil {
		return "unknown"
	}
	switch ge.Type {
	case types.TypeGroup:
		return path.Base(aws.ToString(ge.URI))
	case types.TypeAmazonCustomerByEmail:
		return aws.ToString(ge.EmailAddress)
	}
	return aws.ToString(ge.ID)
}

func toPermission(g types.Grant, ownerID string) models.Permission {
	p := models.Permission{ID: grantID(g), Role: roleFor(g.Permission), Type: models.PermissionUser}
	ge := g.Grantee
	if ge == nil {
		return p
	}
	switch {
	case ge.Type == types.TypeGroup && aws.ToString(ge.URI) == allUsersURI:
		p.Type = models.PermissionAnyone
	case ge.Type == types.TypeGroup && aws.ToString(ge.URI) == authenticatedUsersURI:
		p.Type = models.PermissionDomain
	case ge.Type == types.TypeGroup:
		p.Type = models.PermissionGroup
	case ge.Type == types.TypeAmazonCustomerByEmail:
		p.EmailAddress = aws.ToString(ge.EmailAddress)
	case ge.Type == types.TypeCanonicalUser && aws.ToString(ge.ID) == ownerID && g.Permission == types.PermissionFullControl:
		p.Role = models.RoleOwner
	}
	return p
}

func roleFor(p types.Permission) models.PermissionRole {
	switch p {
	case types.PermissionFullControl, types.PermissionWrite, types.PermissionWriteAcp:
		return models.RoleWriter
	}
	return models.RoleReader
}

func s3Permission(r models.PermissionRole) (types.Permission, bool) {
	switch r {
	case models.RoleReader, models.RoleCommenter:
		return types.PermissionRead, true
	case models.RoleWriter:
		return types.PermissionWrite, true
	case models.RoleOwner:
		return types.PermissionFullControl, true
	}
	return "", false
}

func hasGrant(grants []types.Grant, g types.Grant) bool {
	for _, x := range grants {
		if grantID(x) == grantID(g) {
			return true
		}
	}
	return false
}

func mimeType(key string) string {
	if t := mime.TypeByExtension(path.Ext(key)); t != "" {
		if i := strings.IndexByte(t, ';'); i >= 0 {
			t = t[:i]
		}
		return t
	}
	return "application/octet-stream"
}
