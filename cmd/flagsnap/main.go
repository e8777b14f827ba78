// Command flagsnap evaluates feature flags from the command line and serves
// the admin API of a long-running client.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
