// Mixgraph - Real-time Media Graph Engine and Stream Store
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mixgraph

package services

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/thejerf/suture/v4"
)

// fakeServer blocks in ListenAndServe until Shutdown, unless listenErr
// or exitClean makes it return at once.
type fakeServer struct {
	listenErr   error
	exitClean   bool
	shutdownErr error

	listening chan struct{}
	stop      chan struct{}
	stopOnce  sync.Once
	serves    atomic.Int32
	shutdowns atomic.Int32
}

func newFakeServer() *fakeServer {
	return &fakeServer{listening: make(chan struct{}, 1), stop: make(chan struct{})}
}

func (f *fakeServer) ListenAndServe() error {
	f.serves.Add(1)
	select {
	case f.listening <- struct{}{}:
	default:
	}
	switch {
	case f.listenErr != nil:
		return f.listenErr
	case f.exitClean:
		return nil
	}
	<-f.stop
	return http.ErrServerClosed
}

func (f *fakeServer) Shutdown(context.Context) error {
	f.shutdowns.Add(1)
	f.stopOnce.Do(func() { close(f.stop) })
	return f.shutdownErr
}

func (f *fakeServer) waitListening(t *testing.T) {
	t.Helper()
	select {
	case <-f.listening:
	case <-time.After(time.Second):
		t.Fatal("ListenAndServe was not called")
	}
}

// serveAsync runs svc.Serve and returns a cancel func and the result channel.
func serveAsync(svc *HTTPServerService) (context.CancelFunc, <-chan error) {
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- svc.Serve(ctx) }()
	return cancel, errCh
}

func awaitResult(t *testing.T, errCh <-chan error) error {
	t.Helper()
	select {
	case err := <-errCh:
		return err
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return")
		return nil
	}
}

func TestHTTPServerService_ShutdownTimeout(t *testing.T) {
	tests := []struct {
		name    string
		timeout time.Duration
		want    time.Duration
	}{
		{"explicit", 3 * time.Second, 3 * time.Second},
		{"zero", 0, defaultHTTPShutdownTimeout},
		{"negative", -5 * time.Second, defaultHTTPShutdownTimeout},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewHTTPServerService(newFakeServer(), tt.timeout)
			if svc.shutdownTimeout != tt.want {
				t.Errorf("shutdownTimeout = %v, want %v", svc.shutdownTimeout, tt.want)
			}
			if svc.String() != "http-server" {
				t.Errorf("String() = %q", svc.String())
			}
		})
	}
}

func TestHTTPServerService_Serve(t *testing.T) {
	t.Run("graceful shutdown on cancel", func(t *testing.T) {
		srv := newFakeServer()
		cancel, errCh := serveAsync(NewHTTPServerService(srv, time.Second))
		srv.waitListening(t)
		cancel()

		if err := awaitResult(t, errCh); !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
		if n := srv.shutdowns.Load(); n != 1 {
			t.Errorf("Shutdown called %d times", n)
		}
	})

	t.Run("bind failure", func(t *testing.T) {
		bindErr := errors.New("bind: address already in use")
		srv := newFakeServer()
		srv.listenErr = bindErr

		err := NewHTTPServerService(srv, time.Second).Serve(context.Background())
		if !errors.Is(err, bindErr) {
			t.Errorf("expected bind error, got %v", err)
		}
	})

	t.Run("unexpected clean exit", func(t *testing.T) {
		srv := newFakeServer()
		srv.exitClean = true

		err := NewHTTPServerService(srv, time.Second).Serve(context.Background())
		if !errors.Is(err, errEarlyExit) {
			t.Errorf("expected errEarlyExit, got %v", err)
		}
	})

	t.Run("shutdown failure", func(t *testing.T) {
		shutdownErr := errors.New("shutdown deadline exceeded")
		srv := newFakeServer()
		srv.shutdownErr = shutdownErr
		cancel, errCh := serveAsync(NewHTTPServerService(srv, time.Second))
		srv.waitListening(t)
		cancel()

		if err := awaitResult(t, errCh); !errors.Is(err, shutdownErr) {
			t.Errorf("expected shutdown error, got %v", err)
		}
	})
}

func TestHTTPServerService_UnderSupervisor(t *testing.T) {
	srv := newFakeServer()
	sup := suture.New("ops-test", suture.Spec{
		FailureThreshold: 3,
		FailureBackoff:   10 * time.Millisecond,
		Timeout:          2 * time.Second,
	})
	sup.Add(NewHTTPServerService(srv, time.Second))

	ctx, cancel := context.WithCancel(context.Background())
	errCh := sup.ServeBackground(ctx)
	srv.waitListening(t)
	cancel()
	<-errCh

	if n := srv.shutdowns.Load(); n != 1 {
		t.Errorf("Shutdown called %d times", n)
	}
	if n := srv.serves.Load(); n != 1 {
		t.Errorf("ListenAndServe called %d times", n)
	}
}
