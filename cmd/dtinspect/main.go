// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Command dtinspect inspects datatable schema files and the replication
// streams built from them. Run "dtinspect --help" for the command list.
package main

import (
	"fmt"
	"os"

	"github.com/perilouswithadollarsign/cstrike15-src-sub061/cmd/dtinspect/commands"
)

func main() {
	if err := run(); err != nil {
		// Commands that report their own result (manifest diff) return
		// an error carrying only an exit code.
		if coder, ok := err.(interface{ ExitCode() int }); ok {
			os.Exit(coder.ExitCode())
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	return commands.Root(os.Stdout).Execute(os.Args[1:])
}
