// Package main provides the entry point for the vellum CLI.
package main

import (
	"fmt"
	"os"

	"github.com/vellumsearch/vellum/cmd/vellum/cmd"
	verr "github.com/vellumsearch/vellum/internal/errors"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(verr.ExitCode(err))
	}
}
