// Package common loads AWS sessions from explicit profiles and maps AWS API
// errors onto the connector error taxonomy.
package common

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
)

// ProfileConfig is a resolved AWS profile with its SDK configuration and
// initialised service clients.
type ProfileConfig struct {
	// ProfileName is the name from ~/.aws/credentials or "default".
	ProfileName string

	// AccountID is the resolved AWS account ID for this profile (via STS).
	AccountID string

	// Region is the region every client of this profile is scoped to.
	Region string

	// Config is the fully loaded AWS SDK v2 configuration.
	Config aws.Config

	// Clients holds initialised service clients for Region.
	Clients *ClientSet
}

// AWSClientProvider loads AWS sessions. It is the only place the provider
// layer resolves credentials; connectors receive ready clients.
type AWSClientProvider interface {
	// LoadProfile returns a ProfileConfig for the named profile.
	// Pass an empty string to load the default profile.
	LoadProfile(ctx context.Context, profile string) (*ProfileConfig, error)

	// ListProfiles returns every profile name found in ~/.aws/credentials
	// and ~/.aws/config.
	ListProfiles() ([]string, error)
}
