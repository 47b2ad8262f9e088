package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/pankaj-dahiya-devops/accountguard/internal/version"
)

func TestVersionCmd_Output(t *testing.T) {
	orig := version.Version
	origC := version.Commit
	origD := version.Date
	t.Cleanup(func() {
		version.Version = orig
		version.Commit = origC
		version.Date = origD
	})

	version.Version = "test"
	version.Commit = "abc123"
	version.Date = "2025-01-01"

	var buf bytes.Buffer
	root := newRootCmd()
	root.SetOut(&buf)
	root.SetErr(&buf)
	root.SetArgs([]string{"version"})

	if err := root.Execute(); err != nil {
		t.Fatalf("version command returned error: %v", err)
	}

	out := buf.String()
	if !strings.HasPrefix(out, "ag version test\n") {
		t.Errorf("version output first line wrong; got:\n%s", out)
	}
	for _, want := range []string{"abc123", "2025-01-01"} {
		if !strings.Contains(out, want) {
			t.Errorf("version output missing %q; got:\n%s", want, out)
		}
	}
}

func TestRootCmd_ListsSubcommands(t *testing.T) {
	root := newRootCmd()
	want := []string{"scan", "remediate", "recommend", "report", "serve", "doctor", "version"}
	for _, name := range want {
		cmd, _, err := root.Find([]string{name})
		if err != nil || cmd.Name() != name {
			t.Errorf("subcommand %q not registered (err: %v)", name, err)
		}
	}
}
