package main

import (
	"context"
	"fmt"
	"os"

	"github.com/danmuck/scmictl/internal/logging"
)

func main() {
	logging.ConfigureRuntime()
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "scmictl: %v\n", err)
		os.Exit(1)
	}
}
