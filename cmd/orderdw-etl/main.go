// Package main is the entry point for orderdw-etl.
package main

import (
	"fmt"
	"os"

	"github.com/orderdw/orderdw-etl/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
