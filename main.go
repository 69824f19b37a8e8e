package main

import "github.com/agentic-research/trisort/cmd"

func main() {
	cmd.Execute()
}
