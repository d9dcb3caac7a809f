// Package main provides the entry point for the steer CLI.
package main

import (
	"fmt"
	"os"

	"github.com/BrendanGraham14/steer-sub008/cmd/steer/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
