package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"
	prefixed "github.com/x-cray/logrus-prefixed-formatter"

	"github.com/ivlev/kenburns/internal/failure"
)

var buildVersion = "dev"

func main() {
	log.SetFormatter(&prefixed.TextFormatter{
		TimestampFormat: "2006-01-02 15:04:05",
		FullTimestamp:   true,
		ForceFormatting: true,
	})
	log.SetOutput(os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := newRootCommand()
	if code := exitCode(cmd.ExecuteContext(ctx)); code != 0 {
		stop()
		os.Exit(code)
	}
}

// exitCode logs err and maps it to the process status. Failures that do not
// invalidate the render, such as a failed upload, exit 0.
func exitCode(err error) int {
	if err == nil {
		return 0
	}
	fields := log.Fields{}
	var fe *failure.Error
	if errors.As(err, &fe) {
		fields["kind"], fields["op"] = fe.Kind, fe.Op
	}
	if !failure.IsFatal(err) {
		log.WithFields(fields).Warn(err)
		return 0
	}
	if !errors.Is(err, context.Canceled) {
		log.WithFields(fields).Error(err)
	}
	return 1
}
