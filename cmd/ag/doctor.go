package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pankaj-dahiya-devops/accountguard/internal/config"
	"github.com/pankaj-dahiya-devops/accountguard/internal/policy"
	"github.com/pankaj-dahiya-devops/accountguard/internal/providers/aws/common"
	kube "github.com/pankaj-dahiya-devops/accountguard/internal/providers/kubernetes"
	"github.com/pankaj-dahiya-devops/accountguard/internal/providers/memory"
	"github.com/pankaj-dahiya-devops/accountguard/internal/rulepacks/posture"
)

// defaultPolicyPath is checked when the config names no policy file.
const defaultPolicyPath = "./ag.yaml"

// DoctorResult is the structured output of ag doctor. It can be serialised
// to JSON via --format=json or rendered as a human-readable table (default).
type DoctorResult struct {
	Config struct {
		Path   string   `json:"path"`
		Valid  bool     `json:"valid"`
		Errors []string `json:"errors,omitempty"`
	} `json:"config"`

	Provider struct {
		Name      string   `json:"name"`
		OK        bool     `json:"ok"`
		Profile   string   `json:"profile,omitempty"`
		Profiles  []string `json:"profiles,omitempty"`
		AccountID string   `json:"account_id,omitempty"`
		Detail    string   `json:"detail,omitempty"`
		Error     string   `json:"error,omitempty"`
	} `json:"provider"`

	Store struct {
		Kind      string `json:"kind"`
		OK        bool   `json:"ok"`
		Context   string `json:"context,omitempty"`
		Namespace string `json:"namespace,omitempty"`
		Error     string `json:"error,omitempty"`
	} `json:"store"`

	Policy struct {
		Path    string   `json:"path"`
		Present bool     `json:"present"`
		Valid   bool     `json:"valid"`
		Errors  []string `json:"errors,omitempty"`
	} `json:"policy"`

	OverallHealthy bool `json:"overall_healthy"`
}

// doctorEnv is everything runDoctor inspects.
type doctorEnv struct {
	cfg        *config.Config
	configPath string
	configErr  error
	aws        common.AWSClientProvider
	kube       kube.ClientProvider
}

func (c *cli) newDoctorCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Run environment diagnostics",
		RunE: func(cmd *cobra.Command, args []string) error {
			format, _ := cmd.Flags().GetString("format")

			env := doctorEnv{
				configPath: config.FileLoader{Path: c.opts.configPath}.ConfigPath(),
				aws:        c.deps.AWS,
				kube:       c.deps.Kube,
			}
			env.cfg, env.configErr = c.loadConfig()
			if env.cfg == nil {
				env.cfg = config.Defaults()
			}
			if env.aws == nil {
				env.aws = common.NewDefaultAWSClientProvider(env.cfg.AWS.DefaultRegion)
			}
			if env.kube == nil {
				env.kube = kube.DefaultClientProvider{Path: env.cfg.Store.Kubeconfig}
			}

			result, err := runDoctor(cmd.Context(), env, cmd.OutOrStdout(), format)
			if err != nil {
				return err
			}
			if !result.OverallHealthy {
				// The report already says what is wrong.
				return &exitError{code: 1}
			}
			return nil
		},
	}
	cmd.Flags().String("format", "table", `Output format: "table" or "json"`)
	return cmd
}

// runDoctor collects all diagnostic results, renders them to w in the
// requested format, and returns the result.
// The returned error covers only rendering failures (e.g. JSON encode error).
// Callers must inspect result.OverallHealthy to determine whether the
// environment is healthy.
func runDoctor(ctx context.Context, env doctorEnv, w io.Writer, format string) (DoctorResult, error) {
	result := collectDoctorResult(ctx, env)

	switch format {
	case "json":
		if err := json.NewEncoder(w).Encode(result); err != nil {
			return result, fmt.Errorf("encode doctor result: %w", err)
		}
	default:
		renderDoctorTable(result, w)
	}

	return result, nil
}

// collectDoctorResult runs all environment checks and populates a
// DoctorResult. It performs no rendering.
func collectDoctorResult(ctx context.Context, env doctorEnv) DoctorResult {
	var result DoctorResult
	cfg := env.cfg

	// Config: parse → validate.
	result.Config.Path = env.configPath
	if env.configErr != nil {
		result.Config.Errors = []string{env.configErr.Error()}
	} else {
		for _, e := range config.Validate(cfg) {
			result.Config.Errors = append(result.Config.Errors, e.Error())
		}
		result.Config.Valid = len(result.Config.Errors) == 0
	}

	// Provider: fixture parse, or AWS credentials → STS account ID.
	result.Provider.Name = cfg.Connector.Provider
	switch cfg.Connector.Provider {
	case "memory":
		if cfg.Connector.Fixture == "" {
			result.Provider.Error = "no fixture configured"
			break
		}
		if _, err := memory.LoadFixture(cfg.Connector.Fixture); err != nil {
			result.Provider.Error = err.Error()
			break
		}
		result.Provider.OK = true
		result.Provider.Detail = cfg.Connector.Fixture
	case "aws":
		result.Provider.Profile = cfg.AWS.DefaultProfile
		// The profile list is informational; LoadProfile decides health.
		result.Provider.Profiles, _ = env.aws.ListProfiles()
		p, err := env.aws.LoadProfile(ctx, cfg.AWS.DefaultProfile)
		if err != nil {
			result.Provider.Error = err.Error()
			break
		}
		result.Provider.OK = true
		result.Provider.AccountID = p.AccountID
		result.Provider.Detail = "bucket " + cfg.AWS.Bucket
	default:
		result.Provider.Error = fmt.Sprintf("unknown provider %q", cfg.Connector.Provider)
	}

	// Store: the configmap store needs a reachable cluster and RBAC.
	result.Store.Kind = cfg.Store.Kind
	switch cfg.Store.Kind {
	case "configmap":
		clientset, info, err := env.kube.ClientsetForContext(cfg.Store.Context)
		if err != nil {
			result.Store.Error = err.Error()
			break
		}
		result.Store.Context = info.ContextName
		result.Store.Namespace = cfg.Store.Namespace
		if result.Store.Namespace == "" {
			result.Store.Namespace = info.Namespace
		}
		if err := kube.CheckStoreAccess(ctx, clientset, result.Store.Namespace); err != nil {
			result.Store.Error = err.Error()
			break
		}
		result.Store.OK = true
	case "file", "memory":
		result.Store.OK = true
	default:
		result.Store.Error = fmt.Sprintf("unknown store kind %q", cfg.Store.Kind)
	}

	// Policy: stat → load → validate (file is optional).
	path := cfg.Scan.Policy
	if path == "" {
		path = defaultPolicyPath
	}
	result.Policy.Path = path
	_, statErr := os.Stat(path)
	if statErr == nil {
		result.Policy.Present = true
		pol, loadErr := policy.LoadPolicy(path)
		if loadErr != nil {
			result.Policy.Errors = []string{loadErr.Error()}
		} else {
			errs := policy.Validate(pol, posture.NewRegistry().IDs())
			if len(errs) == 0 {
				result.Policy.Valid = true
			} else {
				for _, e := range errs {
					result.Policy.Errors = append(result.Policy.Errors, e.Error())
				}
			}
		}
	} else if !os.IsNotExist(statErr) {
		// Stat error other than "not found": treat as present but unreadable.
		result.Policy.Present = true
		result.Policy.Errors = []string{statErr.Error()}
	}

	result.OverallHealthy = result.Config.Valid &&
		result.Provider.OK &&
		result.Store.OK &&
		(!result.Policy.Present || result.Policy.Valid)

	return result
}

// renderDoctorTable writes the human-readable diagnostic output from result to w.
func renderDoctorTable(result DoctorResult, w io.Writer) {
	fmt.Fprintln(w, "Environment Diagnostics")

	fmt.Fprintln(w, "\nConfig:")
	doctorPrint(w, "File", result.Config.Path, "")
	if result.Config.Valid {
		doctorPrint(w, "Config valid", "OK", "")
	} else {
		for _, e := range result.Config.Errors {
			doctorPrint(w, "Config valid", "FAIL", e)
		}
	}

	fmt.Fprintf(w, "\nProvider (%s):\n", result.Provider.Name)
	switch {
	case !result.Provider.OK:
		doctorPrint(w, "Connectors", "FAIL", result.Provider.Error)
	case result.Provider.AccountID != "":
		if len(result.Provider.Profiles) > 0 {
			doctorPrint(w, "Profiles", strings.Join(result.Provider.Profiles, ", "), "")
		}
		doctorPrint(w, "Credentials", "OK", "")
		doctorPrint(w, "STS Identity", "OK", "Account: "+result.Provider.AccountID)
		doctorPrint(w, "Connectors", "OK", result.Provider.Detail)
	default:
		doctorPrint(w, "Connectors", "OK", result.Provider.Detail)
	}

	fmt.Fprintf(w, "\nResult store (%s):\n", result.Store.Kind)
	if result.Store.Context != "" {
		doctorPrint(w, "Current Context", "OK", result.Store.Context)
	}
	if result.Store.OK {
		doctorPrint(w, "Store access", "OK", result.Store.Namespace)
	} else {
		doctorPrint(w, "Store access", "FAIL", result.Store.Error)
	}

	fmt.Fprintln(w, "\nPolicy:")
	if !result.Policy.Present {
		doctorPrint(w, result.Policy.Path+" present", "Not found (optional)", "")
	} else {
		doctorPrint(w, result.Policy.Path+" present", "YES", "")
		if result.Policy.Valid {
			doctorPrint(w, "Policy valid", "OK", "")
		} else {
			for _, e := range result.Policy.Errors {
				doctorPrint(w, "Policy valid", "FAIL", e)
			}
		}
	}
}

// doctorPrint writes a single diagnostic check line to w.
// When detail is non-empty it is appended in parentheses.
func doctorPrint(w io.Writer, label, status, detail string) {
	if detail != "" {
		fmt.Fprintf(w, "  %s: %s (%s)\n", label, status, detail)
	} else {
		fmt.Fprintf(w, "  %s: %s\n", label, status)
	}
}
