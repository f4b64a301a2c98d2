package scheduler

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"
)

func TestNewScheduler(t *testing.T) {
	s := NewScheduler(slog.Default())

	if s == nil {
		t.Fatal("NewScheduler returned nil")
	}
	if s.cron == nil {
		t.Error("Scheduler cron should not be nil")
	}
	if s.tasks == nil {
		t.Error("Scheduler tasks map should not be nil")
	}
	if s.running {
		t.Error("New scheduler should not be running")
	}
}

func TestScheduler_IsRunning(t *testing.T) {
	s := NewScheduler(slog.Default())

	if s.IsRunning() {
		t.Error("New scheduler should not be running")
	}

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if !s.IsRunning() {
		t.Error("Scheduler should be running after Start")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.Stop(ctx); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	if s.IsRunning() {
		t.Error("Scheduler should not be running after Stop")
	}
}

func TestScheduler_ListTasks(t *testing.T) {
	s := NewScheduler(slog.Default())

	tasks := s.ListTasks()
	if tasks == nil {
		t.Error("ListTasks should return non-nil slice")
	}
	if len(tasks) != 0 {
		t.Errorf("New scheduler should have 0 tasks, got %d", len(tasks))
	}

	noop := func(ctx context.Context) error { return nil }
	if err := s.AddIntervalTask("a", time.Minute, noop); err != nil {
		t.Fatalf("AddIntervalTask failed: %v", err)
	}
	if err := s.AddCronTask("b", "0 * * * * *", noop); err != nil {
		t.Fatalf("AddCronTask failed: %v", err)
	}

	tasks = s.ListTasks()
	if len(tasks) != 2 {
		t.Errorf("expected 2 tasks, got %d", len(tasks))
	}
}

func TestScheduler_AddCronTask_ReplaceExisting(t *testing.T) {
	s := NewScheduler(slog.Default())
	noop := func(ctx context.Context) error { return nil }

	if err := s.AddCronTask("task", "0 * * * * *", noop); err != nil {
		t.Fatalf("first AddCronTask failed: %v", err)
	}
	if err := s.AddCronTask("task", "30 * * * * *", noop); err != nil {
		t.Fatalf("second AddCronTask failed: %v", err)
	}

	if got := len(s.ListTasks()); got != 1 {
		t.Errorf("expected 1 task after replacement, got %d", got)
	}
}

func TestScheduler_AddCronTask_InvalidSchedule(t *testing.T) {
	s := NewScheduler(slog.Default())
	noop := func(ctx context.Context) error { return nil }

	if err := s.AddCronTask("bad", "not a schedule", noop); err == nil {
		t.Error("expected error for invalid cron schedule")
	}
	if got := len(s.ListTasks()); got != 0 {
		t.Errorf("invalid task should not be registered, got %d tasks", got)
	}
}

func TestAddScheduledTask_CronOverridesInterval(t *testing.T) {
	s := NewScheduler(slog.Default())
	noop := func(ctx context.Context) error { return nil }

	if err := addScheduledTask(s, "test_cron", "0 0 2 * * *", 5*time.Minute, noop); err != nil {
		t.Fatalf("addScheduledTask with cron schedule failed: %v", err)
	}

	tasks := s.ListTasks()
	if len(tasks) != 1 || tasks[0] != "test_cron" {
		t.Errorf("tasks = %v, want [test_cron]", tasks)
	}
}

func TestAddScheduledTask_FallbackToInterval(t *testing.T) {
	s := NewScheduler(slog.Default())
	noop := func(ctx context.Context) error { return nil }

	if err := addScheduledTask(s, "test_interval", "", 5*time.Minute, noop); err != nil {
		t.Fatalf("addScheduledTask with interval fallback failed: %v", err)
	}

	tasks := s.ListTasks()
	if len(tasks) != 1 || tasks[0] != "test_interval" {
		t.Errorf("tasks = %v, want [test_interval]", tasks)
	}
}

func TestNewConfig_Defaults(t *testing.T) {
	os.Unsetenv("SCHEDULER_ENABLED")
	os.Unsetenv("QUEUE_MAINTENANCE_INTERVAL_MS")
	os.Unsetenv("CONTENT_SWEEP_INTERVAL_MS")
	os.Unsetenv("QUEUE_DEPTH_SAMPLE_INTERVAL_MS")
	os.Unsetenv("QUEUE_MAINTENANCE_SCHEDULE")
	os.Unsetenv("CONTENT_SWEEP_SCHEDULE")

	cfg := NewConfig()

	if !cfg.Enabled {
		t.Error("Enabled should default to true")
	}
	if cfg.QueueMaintenanceInterval != 10*time.Minute {
		t.Errorf("QueueMaintenanceInterval = %v, want 10m", cfg.QueueMaintenanceInterval)
	}
	if cfg.ContentSweepInterval != time.Hour {
		t.Errorf("ContentSweepInterval = %v, want 1h", cfg.ContentSweepInterval)
	}
	if cfg.QueueDepthSampleInterval != 30*time.Second {
		t.Errorf("QueueDepthSampleInterval = %v, want 30s", cfg.QueueDepthSampleInterval)
	}
	if cfg.QueueMaintenanceSchedule != "" || cfg.ContentSweepSchedule != "" {
		t.Error("cron schedule overrides should be empty by default")
	}
}

func TestNewConfig_EnvOverrides(t *testing.T) {
	os.Setenv("SCHEDULER_ENABLED", "false")
	os.Setenv("QUEUE_MAINTENANCE_INTERVAL_MS", "60000")
	os.Setenv("QUEUE_MAINTENANCE_SCHEDULE", "0 */10 * * * *")
	defer func() {
		os.Unsetenv("SCHEDULER_ENABLED")
		os.Unsetenv("QUEUE_MAINTENANCE_INTERVAL_MS")
		os.Unsetenv("QUEUE_MAINTENANCE_SCHEDULE")
	}()

	cfg := NewConfig()

	if cfg.Enabled {
		t.Error("Enabled should be false")
	}
	if cfg.QueueMaintenanceInterval != time.Minute {
		t.Errorf("QueueMaintenanceInterval = %v, want 1m", cfg.QueueMaintenanceInterval)
	}
	if cfg.QueueMaintenanceSchedule != "0 */10 * * * *" {
		t.Errorf("QueueMaintenanceSchedule = %q", cfg.QueueMaintenanceSchedule)
	}
}
