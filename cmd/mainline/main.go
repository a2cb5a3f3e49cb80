package main

import (
	"context"
	"errors"
	"fmt"
	"os"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		// Interrupted runs exit nonzero but stay quiet; the interruption
		// was the operator's own doing.
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, "mainline:", err)
		}
		os.Exit(1)
	}
}
