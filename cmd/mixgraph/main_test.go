// Mixgraph - Real-time Media Graph Engine and Stream Store
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mixgraph

package main

import (
	"context"
	"fmt"
	"os"
	"syscall"
	"testing"
	"time"

	"github.com/tomtom215/mixgraph/internal/apperr"
	"github.com/tomtom215/mixgraph/internal/catalog"
	"github.com/tomtom215/mixgraph/internal/engine"
	"github.com/tomtom215/mixgraph/internal/graph"
)

// blockingShutdown waits for release or ctx, whichever comes first.
type blockingShutdown struct {
	release chan struct{}
	calls   int
	err     error
}

func (b *blockingShutdown) Shutdown(ctx context.Context) error {
	b.calls++
	select {
	case <-b.release:
		return nil
	case <-ctx.Done():
		b.err = ctx.Err()
		return b.err
	}
}

func TestDrainGracefully(t *testing.T) {
	t.Run("waits for the drain", func(t *testing.T) {
		s := &blockingShutdown{release: make(chan struct{})}
		go func() {
			time.Sleep(20 * time.Millisecond)
			close(s.release)
		}()

		drainGracefully(s, time.Minute, make(chan os.Signal))

		if s.calls != 1 || s.err != nil {
			t.Errorf("calls = %d, err = %v", s.calls, s.err)
		}
	})

	t.Run("bounded by the drain timeout", func(t *testing.T) {
		s := &blockingShutdown{release: make(chan struct{})}
		start := time.Now()

		drainGracefully(s, 10*time.Millisecond, make(chan os.Signal))

		if s.err == nil {
			t.Error("expected the drain to be cut off")
		}
		if took := time.Since(start); took > 5*time.Second {
			t.Errorf("drain took %s", took)
		}
	})

	t.Run("second signal abandons the drain", func(t *testing.T) {
		s := &blockingShutdown{release: make(chan struct{})}
		sigCh := make(chan os.Signal, 1)
		sigCh <- syscall.SIGTERM

		drainGracefully(s, time.Minute, sigCh)

		if s.err != context.Canceled {
			t.Errorf("err = %v, want context.Canceled", s.err)
		}
	})
}

// fakeKeeper records calls and answers with fixed results.
type fakeKeeper struct {
	saved, loaded []string
	ws            engine.Workspace
	saveErr       error
	loadErr       error
}

func (f *fakeKeeper) Save(_ context.Context, name string) (engine.Workspace, error) {
	f.saved = append(f.saved, name)
	return f.ws, f.saveErr
}

func (f *fakeKeeper) Load(_ context.Context, name string) (map[graph.NodeID]graph.NodeID, error) {
	f.loaded = append(f.loaded, name)
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	return map[graph.NodeID]graph.NodeID{1: 4}, nil
}

func TestRestoreWorkspace(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		loadErr error
		wantErr bool
	}{
		{"restored", nil, false},
		{"never saved", fmt.Errorf("load: %w", catalog.ErrWorkspaceNotFound), false},
		{"corrupt", apperr.ErrInvalidArgument, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			k := &fakeKeeper{loadErr: tt.loadErr}
			err := restoreWorkspace(ctx, k, "live")
			if (err != nil) != tt.wantErr {
				t.Errorf("restoreWorkspace err = %v, wantErr %v", err, tt.wantErr)
			}
			if len(k.loaded) != 1 || k.loaded[0] != "live" {
				t.Errorf("loaded = %v", k.loaded)
			}
		})
	}
}

func TestSaveWorkspace(t *testing.T) {
	k := &fakeKeeper{ws: engine.Workspace{Skipped: []graph.NodeID{3}}}
	saveWorkspace(context.Background(), k, "live")
	k.saveErr = engine.ErrNoWorkspaceStore
	saveWorkspace(context.Background(), k, "live")
	if len(k.saved) != 2 {
		t.Errorf("saved = %v", k.saved)
	}
}
