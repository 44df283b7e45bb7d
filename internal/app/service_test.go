package app

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"testing"
	"time"
)

type blockingService struct {
	name    string
	stopped atomic.Bool
	release chan struct{}
}

func newBlockingService(name string) *blockingService {
	return &blockingService{name: name, release: make(chan struct{})}
}

func (s *blockingService) Name() string { return s.name }

func (s *blockingService) Start(ctx context.Context) error {
	select {
	case <-ctx.Done():
	case <-s.release:
	}
	return nil
}

func (s *blockingService) Stop(context.Context) error {
	if s.stopped.CompareAndSwap(false, true) {
		close(s.release)
	}
	return nil
}

type failingService struct{}

func (failingService) Name() string                { return "failing" }
func (failingService) Start(context.Context) error { return errors.New("listen failed") }
func (failingService) Stop(context.Context) error  { return nil }

func TestRunnerStopsAllServicesOnCancel(t *testing.T) {
	a := newBlockingService("a")
	b := newBlockingService("b")
	runner := NewRunner(a, b)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- runner.Run(ctx, time.Second, nil) }()

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("cancel should return nil, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("runner did not return after cancel")
	}
	if !a.stopped.Load() || !b.stopped.Load() {
		t.Fatalf("all services should be stopped")
	}
}

func TestRunnerReturnsFirstServiceError(t *testing.T) {
	peer := newBlockingService("peer")
	runner := NewRunner(peer, failingService{})

	err := runner.Run(context.Background(), time.Second, nil)
	if err == nil || err.Error() != "failing: listen failed" {
		t.Fatalf("expected wrapped service error, got %v", err)
	}
	if !peer.stopped.Load() {
		t.Fatalf("peer service should be stopped after failure")
	}
}

func TestRunnerWithoutServices(t *testing.T) {
	if err := NewRunner().Run(context.Background(), time.Second, nil); err == nil {
		t.Fatalf("expected error for empty runner")
	}
}

func TestParseMode(t *testing.T) {
	cases := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "", want: ModeAll},
		{in: " API ", want: ModeAPI},
		{in: "worker", want: ModeWorker},
		{in: "cron", wantErr: true},
	}
	for _, tc := range cases {
		got, err := ParseMode(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Fatalf("mode %q should fail", tc.in)
			}
			continue
		}
		if err != nil || got != tc.want {
			t.Fatalf("mode %q want %q got %q err=%v", tc.in, tc.want, got, err)
		}
	}
}

func TestHTTPServiceReportsListenError(t *testing.T) {
	svc := NewHTTPService("127.0.0.1:-1", http.NotFoundHandler())
	if err := svc.Start(context.Background()); err == nil {
		t.Fatalf("invalid address should fail to listen")
	}
	if err := svc.Stop(context.Background()); err != nil {
		t.Fatalf("stop after failed start should succeed: %v", err)
	}
}
