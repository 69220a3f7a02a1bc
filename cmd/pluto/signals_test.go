package main

import (
	"context"
	"os"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShutdownContextCancelsOnSignal(t *testing.T) {
	ctx, cancel := shutdownContext(context.Background(), syscall.SIGUSR1)
	defer cancel()

	require.NoError(t, syscall.Kill(os.Getpid(), syscall.SIGUSR1))

	select {
	case <-ctx.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("context not cancelled by signal")
	}
}

func TestShutdownContextReleasesHandlersOnCancel(t *testing.T) {
	released := make(chan struct{})

	orig := notifyContext
	notifyContext = func(parent context.Context, sigs ...os.Signal) (context.Context, context.CancelFunc) {
		ctx, cancel := context.WithCancel(parent)
		return ctx, func() {
			cancel()
			close(released)
		}
	}
	t.Cleanup(func() { notifyContext = orig })

	ctx, cancel := shutdownContext(context.Background(), syscall.SIGINT)

	select {
	case <-released:
		t.Fatal("handlers released before shutdown")
	default:
	}

	cancel()

	select {
	case <-released:
	case <-time.After(5 * time.Second):
		t.Fatal("signal handlers still registered after shutdown started")
	}
	assert.Error(t, ctx.Err())
}
