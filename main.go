// Package main is the entry point for the pinstats CLI tool, which ingests
// league score archives and computes player/team performance statistics.
package main

import "github.com/salishmushrooms/pinstats/cmd"

func main() {
	cmd.Execute()
}
