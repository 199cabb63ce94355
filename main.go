// The main package for the companycrawl executable.
package main

import (
	"github.com/orbitdata/companycrawl/cmd"
)

// main defers all execution to the Cobra CLI library.
func main() {
	cmd.Execute()
}
