// Command autojs-host drives an Auto.js device from the workstation.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rbright/autojs-host/internal/app"
)

func main() {
	// attach runs until interrupted; one-shot commands abort their in-flight request.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := app.Execute(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}
