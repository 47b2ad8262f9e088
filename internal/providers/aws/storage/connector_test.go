package awsstorage

import (
	"context"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/pankaj-dahiya-devops/accountguard/internal/connector"
	"github.com/pankaj-dahiya-devops/accountguard/internal/models"
)

// fakeS3 keeps per-key ACLs in memory.
type fakeS3 struct {
	keys []string
	acls map[string]*s3.GetObjectAclOutput
	puts int
}

func (f *fakeS3) ListObjectsV2(_ context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	out := &s3.ListObjectsV2Output{}
	for i, k := range f.keys {
		if in.MaxKeys != nil && int32(i) >= *in.MaxKeys {
			break
		}
		out.Contents = append(out.Contents, types.Object{Key: aws.String(k)})
	}
	return out, nil
}

func (f *fakeS3) GetObjectAcl(_ context.Context, in *s3.GetObjectAclInput, _ ...func(*s3.Options)) (*s3.GetObjectAclOutput, error) {
	acl, ok := f.acls[aws.ToString(in.Key)]
	if !ok {
		return nil, &smithy.GenericAPIError{Code: "NoSuchKey"}
	}
	cp := *acl
	cp.Grants = append([]types.Grant(nil), acl.Grants...)
	return &cp, nil
}

func (f *fakeS3) PutObjectAcl(_ context.Context, in *s3.PutObjectAclInput, _ ...func(*s3.Options)) (*s3.PutObjectAclOutput, error) {
	f.puts++
	f.acls[aws.ToString(in.Key)] = &s3.GetObjectAclOutput{
		Owner:  in.AccessControlPolicy.Owner,
		Grants: in.AccessControlPolicy.Grants,
	}
	return &s3.PutObjectAclOutput{}, nil
}

func groupGrant(uri string, p types.Permission) types.Grant {
	return types.Grant{Grantee: &types.Grantee{Type: types.TypeGroup, URI: aws.String(uri)}, Permission: p}
}

func newFake() *fakeS3 {
	owner := &types.Owner{ID: aws.String("owner-id")}
	return &fakeS3{
		keys: []string{"reports/", "reports/q3.pdf", "notes.txt"},
		acls: map[string]*s3.GetObjectAclOutput{
			"reports/q3.pdf": {
				Owner: owner,
				Grants: []types.Grant{
					{Grantee: &types.Grantee{Type: types.TypeCanonicalUser, ID: aws.String("owner-id")}, Permission: types.PermissionFullControl},
					groupGrant(allUsersURI, types.PermissionWrite),
					groupGrant(authenticatedUsersURI, types.PermissionRead),
				},
			},
		},
	}
}

func TestListFiles_SkipsFoldersAndDetectsMime(t *testing.T) {
	files, err := New(newFake(), "b").ListFiles(context.Background(), 100)
	if err != nil {
		t.Fatalf("ListFiles: %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("len(files) = %d; want 2", len(files))
	}
	if files[0].ID != "reports/q3.pdf" || files[0].Name != "q3.pdf" || files[0].MimeType != "application/pdf" {
		t.Errorf("files[0] = %+v", files[0])
	}
	if !files[0].Shared {
		t.Error("objects must be reported shared so their grants are inspected")
	}
}

func TestGetPermissions_MapsGrantees(t *testing.T) {
	perms, err := New(newFake(), "b").GetPermissions(context.Background(), "reports/q3.pdf")
	if err != nil {
		t.Fatalf("GetPermissions: %v", err)
	}
	want := []models.Permission{
		{ID: "owner-id:FULL_CONTROL", Type: models.PermissionUser, Role: models.RoleOwner},
		{ID: "AllUsers:WRITE", Type: models.PermissionAnyone, Role: models.RoleWriter},
		{ID: "AuthenticatedUsers:READ", Type: models.PermissionDomain, Role: models.RoleReader},
	}
	if len(perms) != len(want) {
		t.Fatalf("perms = %+v", perms)
	}
	for i := range want {
		if perms[i] != want[i] {
			t.Errorf("perms[%d] = %+v; want %+v", i, perms[i], want[i])
		}
	}
}

func TestGetPermissions_MissingObjectIsNotFound(t *testing.T) {
	_, err := New(newFake(), "b").GetPermissions(context.Background(), "gone")
	if !connector.IsNotFound(err) {
		t.Errorf("GetPermissions(gone) = %v; want not_found", err)
	}
}

func TestDeletePermission(t *testing.T) {
	fake := newFake()
	c := New(fake, "b")
	ctx := context.Background()

	if err := c.DeletePermission(ctx, "reports/q3.pdf", "AllUsers:WRITE"); err != nil {
		t.Fatalf("DeletePermission: %v", err)
	}
	perms, _ := c.GetPermissions(ctx, "reports/q3.pdf")
	for _, p := range perms {
		if p.Type == models.PermissionAnyone {
			t.Errorf("anyone grant still present: %+v", p)
		}
	}
	if len(perms) != 2 {
		t.Errorf("len(perms) = %d; want 2", len(perms))
	}

	err := c.DeletePermission(ctx, "reports/q3.pdf", "AllUsers:WRITE")
	if !connector.IsNotFound(err) {
		t.Errorf("second DeletePermission = %v; want not_found", err)
	}
	if fake.puts != 1 {
		t.Errorf("PutObjectAcl calls = %d; want 1", fake.puts)
	}
}

func TestSetPermissionRole_Downgrade(t *testing.T) {
	c := New(newFake(), "b")
	ctx := context.Background()

	if err := c.SetPermissionRole(ctx, "reports/q3.pdf", "AllUsers:WRITE", models.RoleReader); err != nil {
		t.Fatalf("SetPermissionRole: %v", err)
	}
	perms, _ := c.GetPermissions(ctx, "reports/q3.pdf")
	found := false
	for _, p := range perms {
		if p.ID == "AllUsers:READ" {
			found = true
		}
		if p.ID == "AllUsers:WRITE" {
			t.Error("write grant must be replaced")
		}
	}
	if !found {
		t.Errorf("perms = %+v; want AllUsers:READ", perms)
	}
}

func TestSetPermissionRole_MergesDuplicateGrant(t *testing.T) {
	fake := newFake()
	fake.acls["reports/q3.pdf"].Grants = append(fake.acls["reports/q3.pdf"].Grants, groupGrant(allUsersURI, types.PermissionRead))
	c := New(fake, "b")

	if err := c.SetPermissionRole(context.Background(), "reports/q3.pdf", "AllUsers:WRITE", models.RoleReader); err != nil {
		t.Fatalf("SetPermissionRole: %v", err)
	}
	perms, _ := c.GetPermissions(context.Background(), "reports/q3.pdf")
	n := 0
	for _, p := range perms {
		if p.ID == "AllUsers:READ" {
			n++
		}
	}
	if n != 1 {
		t.Errorf("AllUsers:READ grants = %d; want 1", n)
	}
}
