// rewatch reruns a command whenever watched source files change.
// One binary, one loop: watch, debounce, restart.
package main

import (
	"os"

	"github.com/corey/rewatch/cmd/rewatch/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
