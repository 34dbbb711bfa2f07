// Package main is the entry point for the zbx-import CLI binary.
package main

import (
	"os"

	"zbx-import/pkg/cli"
)

func main() {
	os.Exit(cli.Execute())
}
