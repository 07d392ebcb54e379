// The main package for the threadsapi executable.
package main

import (
	"github.com/JakeFAU/threads-api/cmd"
)

// main defers all execution to the Cobra CLI.
func main() {
	cmd.Execute()
}
