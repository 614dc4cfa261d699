// Command lvmatch partitions numeric sets, solves linear and integer
// models, runs grouping rounds and forms games from waiting parties.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd(os.Stdout).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "lvmatch:", err)
		os.Exit(1)
	}
}
