package scheduler

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type memoryStorage struct {
	mu   sync.Mutex
	jobs map[string]*Job
}

func newMemoryStorage() *memoryStorage {
	return &memoryStorage{jobs: make(map[string]*Job)}
}

func (m *memoryStorage) Save(job *Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *job
	m.jobs[job.ID] = &copied
	return nil
}

func (m *memoryStorage) Delete(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.jobs, id)
	return nil
}

func (m *memoryStorage) LoadAll() ([]*Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*Job
	for _, j := range m.jobs {
		copied := *j
		out = append(out, &copied)
	}
	return out, nil
}

func TestAddAndRemove(t *testing.T) {
	storage := newMemoryStorage()
	s := New(storage, func(ctx context.Context, job *Job) (string, error) {
		return "", nil
	}, nil, testLogger())

	job := &Job{Schedule: "0 9 * * *", Prompt: "resumo do dia", Channel: "whatsapp", ChatID: "123", Enabled: true}
	if err := s.Add(job); err != nil {
		t.Fatalf("Add() error: %v", err)
	}
	if job.ID == "" {
		t.Error("Add should assign an ID")
	}
	if job.Type != "cron" {
		t.Errorf("Type = %q, want default cron", job.Type)
	}
	if _, ok := storage.jobs[job.ID]; !ok {
		t.Error("job should be persisted on Add")
	}

	if err := s.Add(&Job{ID: job.ID, Schedule: "@daily", Prompt: "x"}); err == nil {
		t.Error("duplicate ID should be rejected")
	}
	if err := s.Add(&Job{Schedule: "", Prompt: "x"}); err == nil {
		t.Error("empty schedule should be rejected")
	}
	if err := s.Add(&Job{Schedule: "@daily"}); err == nil {
		t.Error("empty prompt should be rejected")
	}

	if err := s.Remove(job.ID); err != nil {
		t.Fatalf("Remove() error: %v", err)
	}
	if _, ok := storage.jobs[job.ID]; ok {
		t.Error("job should be deleted from storage on Remove")
	}
	if err := s.Remove("nope"); err == nil {
		t.Error("removing unknown job should fail")
	}
}

func TestStartLoadsPersistedJobs(t *testing.T) {
	storage := newMemoryStorage()
	_ = storage.Save(&Job{
		ID: "j1", Schedule: "0 9 * * *", Type: "cron", Prompt: "bom dia",
		Channel: "whatsapp", ChatID: "123", Enabled: true, CreatedAt: time.Now(),
	})

	s := New(storage, func(ctx context.Context, job *Job) (string, error) {
		return "", nil
	}, nil, testLogger())

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	defer s.Stop()

	if _, ok := s.Get("j1"); !ok {
		t.Error("persisted job should be loaded on Start")
	}
}

func TestOneShotJobFiresAndRemovesItself(t *testing.T) {
	storage := newMemoryStorage()
	fired := make(chan string, 1)
	delivered := make(chan string, 1)

	s := New(storage,
		func(ctx context.Context, job *Job) (string, error) {
			fired <- job.Prompt
			return "lembrete: " + job.Prompt, nil
		},
		func(ctx context.Context, channel, chatID, message string) error {
			delivered <- message
			return nil
		},
		testLogger())

	if err := s.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer s.Stop()

	job := &Job{
		Schedule: "20ms", Type: "at", Prompt: "tomar remédio",
		Channel: "whatsapp", ChatID: "123", Enabled: true,
	}
	if err := s.Add(job); err != nil {
		t.Fatal(err)
	}

	select {
	case prompt := <-fired:
		if prompt != "tomar remédio" {
			t.Errorf("fired prompt = %q", prompt)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("one-shot job never fired")
	}

	select {
	case msg := <-delivered:
		if msg != "lembrete: tomar remédio" {
			t.Errorf("delivered = %q", msg)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("result never delivered")
	}

	// The job unregisters itself after firing.
	deadline := time.After(2 * time.Second)
	for {
		if _, ok := s.Get(job.ID); !ok {
			return
		}
		select {
		case <-deadline:
			t.Fatal("one-shot job was not removed after firing")
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestParseOneShotTime(t *testing.T) {
	t.Run("relative duration", func(t *testing.T) {
		got, err := ParseOneShotTime("5m")
		if err != nil {
			t.Fatal(err)
		}
		want := time.Now().Add(5 * time.Minute)
		if got.Sub(want) > time.Second || want.Sub(got) > time.Second {
			t.Errorf("ParseOneShotTime(5m) = %v, want ~%v", got, want)
		}
	})

	t.Run("clock time rolls to tomorrow when past", func(t *testing.T) {
		past := time.Now().Add(-time.Hour).Format("15:04")
		got, err := ParseOneShotTime(past)
		if err != nil {
			t.Fatal(err)
		}
		if !got.After(time.Now()) {
			t.Errorf("past clock time should roll to tomorrow, got %v", got)
		}
	})

	t.Run("garbage", func(t *testing.T) {
		if _, err := ParseOneShotTime("not-a-time"); err == nil {
			t.Error("expected error for unrecognized format")
		}
	})
}

func TestSQLiteStorageRoundTrip(t *testing.T) {
	storage, err := NewSQLiteStorage(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	defer storage.Close()

	now := time.Now().Truncate(time.Second)
	job := &Job{
		ID: "j1", Schedule: "@daily", Type: "cron", Prompt: "resumo",
		Channel: "whatsapp", ChatID: "123", Enabled: true,
		CreatedBy: "5511912345678", CreatedAt: now, RunCount: 3,
	}
	if err := storage.Save(job); err != nil {
		t.Fatal(err)
	}

	// Update in place.
	job.RunCount = 4
	lastRun := now.Add(time.Minute)
	job.LastRunAt = &lastRun
	if err := storage.Save(job); err != nil {
		t.Fatal(err)
	}

	jobs, err := storage.LoadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(jobs) != 1 {
		t.Fatalf("LoadAll() returned %d jobs, want 1", len(jobs))
	}
	got := jobs[0]
	if got.Prompt != "resumo" || got.RunCount != 4 || !got.Enabled {
		t.Errorf("round-trip mismatch: %+v", got)
	}
	if got.LastRunAt == nil || !got.LastRunAt.Equal(lastRun) {
		t.Errorf("LastRunAt = %v, want %v", got.LastRunAt, lastRun)
	}

	if err := storage.Delete("j1"); err != nil {
		t.Fatal(err)
	}
	jobs, _ = storage.LoadAll()
	if len(jobs) != 0 {
		t.Errorf("jobs after delete = %d, want 0", len(jobs))
	}
}

func TestValidateSchedule(t *testing.T) {
	tests := []struct {
		jobType  string
		schedule string
		wantErr  bool
	}{
		{"cron", "0 9 * * *", false},
		{"cron", "@daily", false},
		{"cron", "não é cron", true},
		{"cron", "", true},
		{"every", "30m", false},
		{"every", "@every 2h", false},
		{"at", "15:04", false},
		{"at", "isso não é hora", true},
	}
	for _, tt := range tests {
		err := ValidateSchedule(tt.jobType, tt.schedule)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidateSchedule(%q, %q) error = %v, wantErr %v",
				tt.jobType, tt.schedule, err, tt.wantErr)
		}
	}
}
