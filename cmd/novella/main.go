package main

import (
	"context"
	"errors"
	"fmt"
	"os"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		// Ctrl-C during play or serve is a normal way out.
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, "novella:", err)
		}
		os.Exit(1)
	}
}
