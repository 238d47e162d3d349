// ./main.go
package main

import (
	"github.com/aonoki/unifetch/cmd"
)

// main is the entry point for the unifetch CLI.
func main() {
	cmd.Execute()
}
