package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
)

// baseYAML is the smallest valid config; tests append sections to it.
const baseYAML = `
servicenow:
  instance_url: %s
  username: svc_bot
  password: hunter2
  knowledge_base_id: kb-1
`

// writeConfig writes yml to a temp deskbot.yaml and returns its path.
func writeConfig(t *testing.T, yml string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "deskbot.yaml")
	if err := os.WriteFile(path, []byte(yml), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

// run executes the root command with args and returns combined output.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestVersionCmd(t *testing.T) {
	out, err := run(t, "version")
	if err != nil {
		t.Fatalf("version command failed: %v", err)
	}
	if !strings.Contains(out, "deskbot dev") {
		t.Errorf("expected output to contain 'deskbot dev', got: %s", out)
	}
	if !strings.Contains(out, "commit: none") {
		t.Errorf("expected output to contain 'commit: none', got: %s", out)
	}
}

func TestVersionCmdWithCustomValues(t *testing.T) {
	origVersion, origCommit, origDate := Version, Commit, Date
	Version, Commit, Date = "1.0.0", "abc123", "2026-01-01"
	defer func() { Version, Commit, Date = origVersion, origCommit, origDate }()

	out, err := run(t, "version")
	if err != nil {
		t.Fatalf("version command failed: %v", err)
	}
	for _, want := range []string{"deskbot 1.0.0", "commit: abc123", "built: 2026-01-01"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected output to contain %q, got: %s", want, out)
		}
	}
}

func TestRootCmdHelp(t *testing.T) {
	out, err := run(t, "--help")
	if err != nil {
		t.Fatalf("help failed: %v", err)
	}
	for _, sub := range []string{"serve", "chat", "db", "snow", "version"} {
		if !strings.Contains(out, sub) {
			t.Errorf("expected help to list %q, got: %s", sub, out)
		}
	}
}

func TestConfigFlagDefaults(t *testing.T) {
	root := newRootCmd()
	for _, path := range [][]string{
		{"serve"}, {"chat"}, {"db", "migrate"}, {"db", "purge"},
		{"snow", "user"}, {"snow", "incidents"}, {"snow", "search"},
	} {
		cmd, _, err := root.Find(path)
		if err != nil {
			t.Fatalf("find %v: %v", path, err)
		}
		f := cmd.Flags().Lookup("config")
		if f == nil {
			t.Errorf("%v: missing --config flag", path)
			continue
		}
		if f.Shorthand != "c" || f.DefValue != "deskbot.yaml" {
			t.Errorf("%v: --config = -%s %q, want -c %q", path, f.Shorthand, f.DefValue, "deskbot.yaml")
		}
	}
}

func TestCommands_MissingConfig(t *testing.T) {
	for _, args := range [][]string{
		{"serve"}, {"chat"}, {"db", "migrate"}, {"db", "purge"},
		{"snow", "search", "vpn"},
	} {
		t.Run(strings.Join(args, " "), func(t *testing.T) {
			_, err := run(t, append(args, "--config", "/nonexistent/deskbot.yaml")...)
			if err == nil {
				t.Fatal("expected error for missing config")
			}
			if !strings.Contains(err.Error(), "load config") {
				t.Errorf("error = %q, want to contain %q", err.Error(), "load config")
			}
		})
	}
}

func TestExecute_ReturnsExitCode(t *testing.T) {
	ok := &cobra.Command{Use: "ok", RunE: func(*cobra.Command, []string) error { return nil }}
	if code := execute(ok); code != 0 {
		t.Errorf("execute(ok) = %d, want 0", code)
	}
	fail := &cobra.Command{
		Use:           "fail",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          func(*cobra.Command, []string) error { return os.ErrInvalid },
	}
	if code := execute(fail); code != 1 {
		t.Errorf("execute(fail) = %d, want 1", code)
	}
}
