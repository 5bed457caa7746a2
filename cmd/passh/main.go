// Package main is the entry point for passh.
package main

import (
	"os"

	"github.com/clarkwang/passh/cmd/passh/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
