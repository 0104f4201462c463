package app_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	"smartstart/internal/app"
	"smartstart/internal/config"
	"smartstart/internal/migrate"
)

func TestOpenMigratesAndLoadsDefaults(t *testing.T) {
	dir := t.TempDir()
	nop := zerolog.Nop()
	env, err := app.Open(context.Background(), dir, app.Options{Logger: &nop})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer env.Close()
	got, err := migrate.CurrentVersion(context.Background(), env.DB)
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	want, err := migrate.Latest()
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if got != want || want == 0 {
		t.Fatalf("schema version %d, want %d", got, want)
	}
	if env.Engine.AvgHoursPerDay() != 2 {
		t.Fatalf("expected default capacity, got %v", env.Engine.AvgHoursPerDay())
	}
}

func TestOpenUsesWorkspaceConfig(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, config.FileName), []byte("scheduling:\n  avg_hours_per_day: 3\nlogging:\n  level: disabled\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	env, err := app.Open(context.Background(), dir, app.Options{})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer env.Close()
	if env.Engine.AvgHoursPerDay() != 3 {
		t.Fatalf("capacity %v", env.Engine.AvgHoursPerDay())
	}
	// reopening an existing workspace must not re-run migrations
	again, err := app.Open(context.Background(), dir, app.Options{})
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	again.Close()
}

func TestOpenRejectsBadConfig(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, config.FileName), []byte("recommendations:\n  limit: 0\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := app.Open(context.Background(), dir, app.Options{}); err == nil {
		t.Fatalf("expected config error")
	}
}
