// The main package for the oews-ingest executable.
package main

import (
	"github.com/JakeFAU/oews-ingest/cmd"
)

func main() {
	cmd.Execute()
}
