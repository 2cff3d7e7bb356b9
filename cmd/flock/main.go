// Command flock orchestrates remote browser profiles: bulk creation
// with humanized pacing, scheduled per-profile workflows, and group and
// profile management against the provider's API.
package main

import (
	"fmt"
	"os"

	"github.com/entrhq/flock/pkg/cli"
)

func main() {
	if err := cli.NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
