package main

import (
	"context"
	"os"
	"os/signal"
)

var notifyContext = signal.NotifyContext

// shutdownContext is cancelled by the first of sigs or by the returned cancel.
// Once it is done the handlers are released, so a second interrupt during the
// goodbye kills the process.
func shutdownContext(parent context.Context, sigs ...os.Signal) (context.Context, context.CancelFunc) {
	sigCtx, stop := notifyContext(parent, sigs...)
	ctx, cancel := context.WithCancel(sigCtx)

	go func() {
		<-ctx.Done()
		stop()
	}()

	return ctx, cancel
}
