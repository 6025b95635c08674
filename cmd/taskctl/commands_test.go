package main

import (
	"context"
	"io"
	"log"
	"net"
	"net/http"
	"testing"
	"time"
)

func TestWaitAndShutdownReturnsListenFailure(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer l.Close()

	srv := &http.Server{Addr: l.Addr().String(), Handler: http.NotFoundHandler()}
	serveErr := make(chan error, 1)
	go func() { serveErr <- srv.ListenAndServe() }()

	done := make(chan error, 1)
	go func() { done <- waitAndShutdown(context.Background(), srv, serveErr, log.New(io.Discard, "", 0)) }()
	select {
	case err := <-done:
		if err == nil {
			t.Fatalf("expected the bind failure to be returned")
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("waitAndShutdown did not return after the listener failed")
	}
}

func TestWaitAndShutdownStopsOnCancel(t *testing.T) {
	srv := &http.Server{Addr: "127.0.0.1:0", Handler: http.NotFoundHandler()}
	serveErr := make(chan error, 1)
	go func() { serveErr <- srv.ListenAndServe() }()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := waitAndShutdown(ctx, srv, serveErr, log.New(io.Discard, "", 0)); err != nil {
		t.Fatalf("expected a clean shutdown, got %v", err)
	}
}
