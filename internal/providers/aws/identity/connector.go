// Package awsidentity reports the calling AWS principal and whether it is
// protected by MFA.
package awsidentity

import (
	"context"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/iam"
	"github.com/aws/aws-sdk-go-v2/service/sts"

	"github.com/pankaj-dahiya-devops/accountguard/internal/connector"
	"github.com/pankaj-dahiya-devops/accountguard/internal/models"
	"github.com/pankaj-dahiya-devops/accountguard/internal/providers/aws/common"
)

var _ connector.IdentityConnector = (*Connector)(nil)

// Connector implements connector.IdentityConnector.
type Connector struct {
	sts common.STSClient
	iam common.IAMClient
}

// New returns an identity connector.
func New(stsClient common.STSClient, iamClient common.IAMClient) *Connector {
	return &Connector{sts: stsClient, iam: iamClient}
}

// GetIdentity resolves the caller. MFA status is known for the account root
// (GetAccountSummary) and for IAM users (ListMFADevices); assumed roles and
// federated sessions report MFAKnown=false.
func (c *Connector) GetIdentity(ctx context.Context) (*models.Identity, error) {
	out, err := c.sts.GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		return nil, common.Classify("sts.GetCallerIdentity", err)
	}
	arn := aws.ToString(out.Arn)
	id := &models.Identity{
		Principal:   arn,
		AccountID:   aws.ToString(out.Account),
		DisplayName: displayName(arn),
	}

	switch {
	case strings.HasSuffix(arn, ":root"):
		summary, err := c.iam.GetAccountSummary(ctx, &iam.GetAccountSummaryInput{})
		if err != nil {
			return nil, common.Classify("iam.GetAccountSummary", err)
		}
		id.MFAKnown = true
		id.MFAEnabled = summary.SummaryMap["AccountMFAEnabled"] > 0
	case strings.Contains(arn, ":user/"):
		devices, err := c.iam.ListMFADevices(ctx, &iam.ListMFADevicesInput{
			UserName: aws.String(id.DisplayName),
		})
		if err != nil {
			return nil, common.Classify("iam.ListMFADevices", err)
		}
		id.MFAKnown = true
		id.MFAEnabled = len(devices.MFADevices) > 0
	}
	return id, nil
}

// displayName returns the last path segment of an ARN resource, e.g.
// "alice" for arn:aws:iam::123:user/team/alice.
func displayName(arn string) string {
	if strings.HasSuffix(arn, ":root") {
		return "root"
	}
	if i := strings.LastIndexByte(arn, '/'); i >= 0 {
		return arn[i+1:]
	}
	return arn
}
