// Arbor parses source files into concrete syntax trees and reparses them
// incrementally after edits.
package main

import "github.com/albertocavalcante/arbor/cmd/arbor/internal/cli"

func main() {
	cli.Execute()
}
