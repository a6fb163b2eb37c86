package main

import (
	"fmt"
	"os"

	"ens-identity-graph/cmd/ensgraph/cli"
)

func main() {
	if err := cli.Setup(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
