package main

import (
	"context"
	"log"
	"os"
	"os/signal"

	"github.com/cockroachdb/errors"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		if hint := errors.FlattenHints(err); hint != "" {
			log.Printf("textclassifier: hint: %s", hint)
		}
		log.Fatalf("textclassifier: %v", err)
	}
}
