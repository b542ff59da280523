package commands

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/amberlabs/amber/pkg/amber/scheduler"
)

// writeTestConfig grava um amber.yaml mínimo num diretório temporário e
// devolve o caminho.
func writeTestConfig(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "amber.yaml")
	cfg := `memory:
  path: mem.db
scheduler:
  storage: jobs.db
`
	if err := os.WriteFile(path, []byte(cfg), 0o600); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return path
}

func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()

	root := NewRootCmd("test")
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestScheduleAddListRemove(t *testing.T) {
	cfgPath := writeTestConfig(t)

	out, err := runCommand(t, "--config", cfgPath,
		"schedule", "add", "0 9 * * *", "resumo do dia", "--chat-id", "5511912345678")
	if err != nil {
		t.Fatalf("schedule add error: %v", err)
	}
	if !strings.Contains(out, "cadastrado") {
		t.Errorf("add output = %q, want confirmation", out)
	}

	out, err = runCommand(t, "--config", cfgPath, "schedule", "list")
	if err != nil {
		t.Fatalf("schedule list error: %v", err)
	}
	if !strings.Contains(out, "resumo do dia") || !strings.Contains(out, "0 9 * * *") {
		t.Errorf("list output = %q, want the added job", out)
	}

	// The list shows the short ID prefix; remove accepts it.
	storage, err := scheduler.NewSQLiteStorage(filepath.Join(filepath.Dir(cfgPath), "jobs.db"))
	if err != nil {
		t.Fatalf("opening storage: %v", err)
	}
	jobs, err := storage.LoadAll()
	storage.Close()
	if err != nil || len(jobs) != 1 {
		t.Fatalf("LoadAll() = %d jobs, err %v, want 1 job", len(jobs), err)
	}

	out, err = runCommand(t, "--config", cfgPath, "schedule", "remove", jobs[0].ID[:8])
	if err != nil {
		t.Fatalf("schedule remove error: %v", err)
	}
	if !strings.Contains(out, "removido") {
		t.Errorf("remove output = %q, want confirmation", out)
	}

	out, err = runCommand(t, "--config", cfgPath, "schedule", "list")
	if err != nil {
		t.Fatalf("schedule list error: %v", err)
	}
	if !strings.Contains(out, "Nenhum lembrete") {
		t.Errorf("list output = %q, want empty message", out)
	}
}

func TestScheduleAddRejectsBadSchedule(t *testing.T) {
	cfgPath := writeTestConfig(t)

	_, err := runCommand(t, "--config", cfgPath,
		"schedule", "add", "não é cron", "teste", "--chat-id", "5511912345678")
	if err == nil {
		t.Fatal("expected error for invalid schedule")
	}
}

func TestScheduleRemoveUnknownID(t *testing.T) {
	cfgPath := writeTestConfig(t)

	_, err := runCommand(t, "--config", cfgPath, "schedule", "remove", "deadbeef")
	if err == nil || !strings.Contains(err.Error(), "não encontrado") {
		t.Fatalf("error = %v, want job-not-found", err)
	}
}

func TestShortID(t *testing.T) {
	if got := shortID("abcdefghijk"); got != "abcdefgh" {
		t.Errorf("shortID() = %q, want %q", got, "abcdefgh")
	}
	if got := shortID("abc"); got != "abc" {
		t.Errorf("shortID() = %q, want %q", got, "abc")
	}
}
