package awsidentity

import (
	"context"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/iam"
	iamtypes "github.com/aws/aws-sdk-go-v2/service/iam/types"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/aws/smithy-go"

	"github.com/pankaj-dahiya-devops/accountguard/internal/connector"
)

type fakeSTS struct{ arn string }

func (f fakeSTS) GetCallerIdentity(context.Context, *sts.GetCallerIdentityInput, ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error) {
	return &sts.GetCallerIdentityOutput{Arn: aws.String(f.arn), Account: aws.String("123456789012")}, nil
}

type fakeIAM struct {
	devices      map[string]int
	rootMFA      int32
	listErr      error
	summaryCalls int
}

func (f *fakeIAM) ListMFADevices(_ context.Context, in *iam.ListMFADevicesInput, _ ...func(*iam.Options)) (*iam.ListMFADevicesOutput, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := &iam.ListMFADevicesOutput{}
	for i := 0; i < f.devices[aws.ToString(in.UserName)]; i++ {
		out.MFADevices = append(out.MFADevices, iamtypes.MFADevice{})
	}
	return out, nil
}

func (f *fakeIAM) GetAccountSummary(context.Context, *iam.GetAccountSummaryInput, ...func(*iam.Options)) (*iam.GetAccountSummaryOutput, error) {
	f.summaryCalls++
	return &iam.GetAccountSummaryOutput{SummaryMap: map[string]int32{"AccountMFAEnabled": f.rootMFA}}, nil
}

func TestGetIdentity_UserWithoutMFA(t *testing.T) {
	c := New(fakeSTS{arn: "arn:aws:iam::123456789012:user/team/alice"}, &fakeIAM{})
	id, err := c.GetIdentity(context.Background())
	if err != nil {
		t.Fatalf("GetIdentity: %v", err)
	}
	if id.DisplayName != "alice" || id.AccountID != "123456789012" {
		t.Errorf("identity = %+v", id)
	}
	if !id.MFAKnown || id.MFAEnabled {
		t.Errorf("MFAKnown=%v MFAEnabled=%v; want true, false", id.MFAKnown, id.MFAEnabled)
	}
}

func TestGetIdentity_UserWithMFA(t *testing.T) {
	c := New(fakeSTS{arn: "arn:aws:iam::123456789012:user/bob"}, &fakeIAM{devices: map[string]int{"bob": 1}})
	id, err := c.GetIdentity(context.Background())
	if err != nil {
		t.Fatalf("GetIdentity: %v", err)
	}
	if !id.MFAEnabled {
		t.Error("MFAEnabled = false; want true")
	}
}

func TestGetIdentity_Root(t *testing.T) {
	fake := &fakeIAM{rootMFA: 1}
	id, err := New(fakeSTS{arn: "arn:aws:iam::123456789012:root"}, fake).GetIdentity(context.Background())
	if err != nil {
		t.Fatalf("GetIdentity: %v", err)
	}
	if id.DisplayName != "root" || !id.MFAKnown || !id.MFAEnabled || fake.summaryCalls != 1 {
		t.Errorf("identity = %+v, summary calls = %d", id, fake.summaryCalls)
	}
}

func TestGetIdentity_AssumedRoleUnknownMFA(t *testing.T) {
	id, err := New(fakeSTS{arn: "arn:aws:sts::123456789012:assumed-role/Admin/session"}, &fakeIAM{}).GetIdentity(context.Background())
	if err != nil {
		t.Fatalf("GetIdentity: %v", err)
	}
	if id.MFAKnown {
		t.Error("MFAKnown = true; want false for an assumed role")
	}
}

func TestGetIdentity_IAMDeniedIsForbidden(t *testing.T) {
	fake := &fakeIAM{listErr: &smithy.GenericAPIError{Code: "AccessDenied"}}
	_, err := New(fakeSTS{arn: "arn:aws:iam::1:user/carol"}, fake).GetIdentity(context.Background())
	if !connector.IsForbidden(err) {
		t.Errorf("GetIdentity() = %v; want forbidden", err)
	}
}
