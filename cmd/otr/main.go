// Command otr routes KiCad boards.
package main

import "github.com/OpenTraceLab/OpenTraceRoute/cmd/otr/cmd"

func main() {
	cmd.Execute()
}
