package common

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sts"
)

// fallbackRegion is used when neither the caller nor the profile sets one.
const fallbackRegion = "us-east-1"

// DefaultAWSClientProvider reads the shared config and credentials files
// (~/.aws/config, ~/.aws/credentials, or the AWS_CONFIG_FILE and
// AWS_SHARED_CREDENTIALS_FILE overrides).
type DefaultAWSClientProvider struct {
	factory ClientFactory
	region  string
}

// NewDefaultAWSClientProvider returns a provider backed by the real SDK.
// A non-empty region overrides the profile's region.
func NewDefaultAWSClientProvider(region string) *DefaultAWSClientProvider {
	return &DefaultAWSClientProvider{factory: NewClientSet, region: region}
}

// NewDefaultAWSClientProviderWithFactory returns a provider that builds its
// clients with f. Pass a fake factory in tests.
func NewDefaultAWSClientProviderWithFactory(f ClientFactory, region string) *DefaultAWSClientProvider {
	return &DefaultAWSClientProvider{factory: f, region: region}
}

// LoadProfile loads the SDK config for profile, resolves its account ID, and
// builds its clients. Pass an empty string to load the default profile.
func (p *DefaultAWSClientProvider) LoadProfile(ctx context.Context, profile string) (*ProfileConfig, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if profile != "" {
		opts = append(opts, awsconfig.WithSharedConfigProfile(profile))
	}
	if p.region != "" {
		opts = append(opts, awsconfig.WithRegion(p.region))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load AWS profile %q: %w", profileDisplayName(profile), err)
	}
	if cfg.Region == "" {
		cfg.Region = fallbackRegion
	}

	clients := p.factory(cfg)
	accountID, err := resolveAccountID(ctx, clients.STS)
	if err != nil {
		return nil, fmt.Errorf("resolve account ID for profile %q: %w", profileDisplayName(profile), err)
	}

	return &ProfileConfig{
		ProfileName: profileDisplayName(profile),
		AccountID:   accountID,
		Region:      cfg.Region,
		Config:      cfg,
		Clients:     clients,
	}, nil
}

// ListProfiles implements AWSClientProvider.
func (p *DefaultAWSClientProvider) ListProfiles() ([]string, error) {
	credPath, cfgPath, err := sharedFilePaths()
	if err != nil {
		return nil, err
	}
	credProfiles, err := parseProfilesFromFile(credPath, false)
	if err != nil {
		return nil, err
	}
	cfgProfiles, err := parseProfilesFromFile(cfgPath, true)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var all []string
	for _, name := range append(credProfiles, cfgProfiles...) {
		if name != "" && !seen[name] {
			seen[name] = true
			all = append(all, name)
		}
	}
	return all, nil
}

func profileDisplayName(profile string) string {
	if profile == "" {
		return "default"
	}
	return profile
}

func resolveAccountID(ctx context.Context, client STSClient) (string, error) {
	out, err := client.GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		return "", fmt.Errorf("STS GetCallerIdentity: %w", Classify("sts.GetCallerIdentity", err))
	}
	if out.Account == nil {
		return "", fmt.Errorf("STS GetCallerIdentity returned nil account")
	}
	return aws.ToString(out.Account), nil
}

// sharedFilePaths honours the SDK's environment overrides.
func sharedFilePaths() (credentials, config string, err error) {
	credentials = os.Getenv("AWS_SHARED_CREDENTIALS_FILE")
	config = os.Getenv("AWS_CONFIG_FILE")
	if credentials != "" && config != "" {
		return credentials, config, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", "", fmt.Errorf("resolve home directory: %w", err)
	}
	if credentials == "" {
		credentials = filepath.Join(home, ".aws", "credentials")
	}
	if config == "" {
		config = filepath.Join(home, ".aws", "config")
	}
	return credentials, config, nil
}

// parseProfilesFromFile returns the profile name of every [section] in path.
// With stripProfilePrefix, "[profile staging]" yields "staging". A missing
// file yields no profiles.
func parseProfilesFromFile(path string, stripProfilePrefix bool) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	var profiles []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "[") || !strings.HasSuffix(line, "]") {
			continue
		}
		name := line[1 : len(line)-1]
		if stripProfilePrefix && name != "default" {
			name = strings.TrimPrefix(name, "profile ")
		}
		profiles = append(profiles, strings.TrimSpace(name))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan %s: %w", path, err)
	}
	return profiles, nil
}
