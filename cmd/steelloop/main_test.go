package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"steelloop/internal/domain"
)

func writeTestConfig(t *testing.T) string {
	t.Helper()

	base := t.TempDir()
	path := filepath.Join(base, "steelloop.yaml")
	body := "database:\n  path: " + filepath.Join(base, "steelloop.db") + "\nlogging:\n  level: error\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func runCLI(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()

	cmd := newRootCommand()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestProjectCreateAndList(t *testing.T) {
	t.Parallel()
	cfg := writeTestConfig(t)

	out, err := runCLI(t, "", "--config", cfg, "--user", "user-1", "--json", "project", "create", "Field notes")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	var created domain.Project
	if err := json.Unmarshal([]byte(out), &created); err != nil {
		t.Fatalf("decode create output %q: %v", out, err)
	}
	if created.ID == "" || created.Status != domain.ProjectLinking {
		t.Fatalf("unexpected project %+v", created)
	}

	out, err = runCLI(t, "", "--config", cfg, "--user", "user-1", "project", "list")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if !strings.Contains(out, "Field notes") || !strings.Contains(out, created.ID) {
		t.Fatalf("list output missing project:\n%s", out)
	}

	out, err = runCLI(t, "", "--config", cfg, "--user", "user-2", "project", "list")
	if err != nil {
		t.Fatalf("list other user: %v", err)
	}
	if strings.Contains(out, created.ID) {
		t.Fatalf("project leaked to another user:\n%s", out)
	}
}

func TestUploadThenIngestQueuesItem(t *testing.T) {
	t.Parallel()
	cfg := writeTestConfig(t)

	out, err := runCLI(t, "", "--config", cfg, "--user", "user-1", "--json", "project", "create", "Uploads")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	var project domain.Project
	if err := json.Unmarshal([]byte(out), &project); err != nil {
		t.Fatalf("decode project: %v", err)
	}

	doc := filepath.Join(t.TempDir(), "notes.txt")
	if err := os.WriteFile(doc, []byte("Retention rose 40% after onboarding calls."), 0o644); err != nil {
		t.Fatalf("write doc: %v", err)
	}
	if _, err := runCLI(t, "", "--config", cfg, "--user", "user-1", "project", "upload", project.ID, doc); err != nil {
		t.Fatalf("upload: %v", err)
	}

	out, err = runCLI(t, "", "--config", cfg, "--user", "user-1", "--json", "project", "ingest", project.ID)
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	var item domain.PipelineItem
	if err := json.Unmarshal([]byte(out), &item); err != nil {
		t.Fatalf("decode item: %v", err)
	}
	if item.Status != domain.ItemScouting {
		t.Fatalf("expected scouting, got %s", item.Status)
	}

	out, err = runCLI(t, "", "--config", cfg, "pipeline", "runs")
	if err != nil {
		t.Fatalf("runs: %v", err)
	}
	if !strings.Contains(out, "1 event(s) pending") {
		t.Fatalf("expected one pending event:\n%s", out)
	}
}

func TestCommandsRequireUser(t *testing.T) {
	cfg := writeTestConfig(t)
	t.Setenv(userEnv, "")

	if _, err := runCLI(t, "", "--config", cfg, "project", "list"); !errors.Is(err, errNoUser) {
		t.Fatalf("expected errNoUser, got %v", err)
	}

	t.Setenv(userEnv, "env-user")
	if _, err := runCLI(t, "", "--config", cfg, "project", "list"); err != nil {
		t.Fatalf("env user: %v", err)
	}
}

func TestVaultAuditReportsFailure(t *testing.T) {
	t.Parallel()
	cfg := writeTestConfig(t)

	path := filepath.Join(t.TempDir(), "vault.yaml")
	if err := os.WriteFile(path, []byte("voice_dna:\n  signature_phrases: [one]\n"), 0o644); err != nil {
		t.Fatalf("write vault: %v", err)
	}

	out, err := runCLI(t, "", "--config", cfg, "vault", "audit", path)
	if err == nil {
		t.Fatalf("expected audit failure")
	}
	if !strings.Contains(out, string(domain.AuditFailed)) {
		t.Fatalf("audit output missing status:\n%s", out)
	}

	out, err = runCLI(t, "", "--config", cfg, "--user", "user-1", "--json", "vault", "import", path)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	var view vaultView
	if err := json.Unmarshal([]byte(out), &view); err != nil {
		t.Fatalf("decode vault view: %v", err)
	}
	if view.Version != 1 || view.AuditStatus != domain.AuditFailed {
		t.Fatalf("unexpected vault view %+v", view)
	}
}

func TestScoreReadsStdin(t *testing.T) {
	t.Parallel()
	cfg := writeTestConfig(t)

	content := "We cut churn by 37% in one quarter. It took three calls a week. Nothing else changed."
	out, err := runCLI(t, content, "--config", cfg, "--user", "user-1", "score")
	if err != nil {
		t.Fatalf("score: %v", err)
	}
	if !strings.Contains(out, "/100") || !strings.Contains(out, "Rhythm") {
		t.Fatalf("unexpected score output:\n%s", out)
	}
}
