// Mixgraph - Real-time Media Graph Engine and Stream Store
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mixgraph

package supervisor

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/tomtom215/mixgraph/internal/config"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// waitStarted polls until every service has started at least once.
func waitStarted(t *testing.T, svcs ...*mockService) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for _, s := range svcs {
		for s.StartCount() < 1 {
			if time.Now().After(deadline) {
				t.Fatalf("service %s was not started", s)
			}
			time.Sleep(5 * time.Millisecond)
		}
	}
}

func TestTreeConstruction(t *testing.T) {
	t.Run("applies default values for zero config", func(t *testing.T) {
		tree, err := NewTree(testLogger(), TreeConfig{})
		if err != nil {
			t.Fatalf("failed to create tree: %v", err)
		}
		if tree.Root() == nil {
			t.Fatal("root supervisor should not be nil")
		}
		if tree.config != DefaultTreeConfig() {
			t.Errorf("config = %+v, want defaults", tree.config)
		}
	})

	t.Run("nil logger falls back to default", func(t *testing.T) {
		tree, err := NewTree(nil, TreeConfig{})
		if err != nil {
			t.Fatalf("failed to create tree: %v", err)
		}
		if tree.logger == nil {
			t.Error("logger should not be nil")
		}
	})

	t.Run("converts application config", func(t *testing.T) {
		cfg := config.Default().Supervisor
		tc := TreeConfigFrom(cfg)
		if tc.FailureThreshold != cfg.FailureThreshold || tc.ShutdownTimeout != cfg.ShutdownTimeout {
			t.Errorf("TreeConfigFrom = %+v from %+v", tc, cfg)
		}
	})
}

func TestTreeLifecycle(t *testing.T) {
	tree, err := NewTree(testLogger(), TreeConfig{
		FailureBackoff:  100 * time.Millisecond,
		ShutdownTimeout: time.Second,
	})
	if err != nil {
		t.Fatalf("failed to create tree: %v", err)
	}

	data := newMockService("persister")
	eng := newMockService("domain-audio")
	ops := newMockService("http-server")
	tree.AddDataService(data)
	tree.AddEngineService(eng)
	tree.AddOpsService(ops)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := tree.ServeBackground(ctx)

	waitStarted(t, data, eng, ops)
	cancel()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			t.Errorf("unexpected error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("tree did not shut down in time")
	}

	report, err := tree.UnstoppedServiceReport()
	if err != nil {
		t.Fatalf("UnstoppedServiceReport: %v", err)
	}
	if len(report) != 0 {
		t.Errorf("unstopped services: %v", report)
	}
}

func TestTreeRemoveEngineService(t *testing.T) {
	tree, _ := NewTree(testLogger(), TreeConfig{ShutdownTimeout: time.Second})

	svc := newMockService("domain-video")
	token := tree.AddEngineService(svc)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	errCh := tree.ServeBackground(ctx)

	waitStarted(t, svc)
	if err := tree.RemoveEngineService(token, time.Second); err != nil {
		t.Fatalf("RemoveEngineService: %v", err)
	}

	cancel()
	<-errCh
	if n := svc.StartCount(); n != 1 {
		t.Errorf("removed service started %d times", n)
	}
}

func TestTreeFailureIsolation(t *testing.T) {
	tree, _ := NewTree(testLogger(), TreeConfig{
		FailureThreshold: 10,
		FailureBackoff:   10 * time.Millisecond,
		ShutdownTimeout:  time.Second,
	})

	failing := newMockService("event-bus")
	failing.maxFails = 2
	stable := newMockService("persister")

	tree.AddEngineService(failing)
	tree.AddDataService(stable)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := tree.ServeBackground(ctx)

	deadline := time.Now().Add(time.Second)
	for failing.StartCount() < 3 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	<-errCh

	if n := failing.StartCount(); n < 3 {
		t.Errorf("expected at least 3 starts for failing service, got %d", n)
	}
	if n := stable.StartCount(); n != 1 {
		t.Errorf("stable service restarted: %d starts", n)
	}
}
