// Package main is the entry point for the dotametrics CLI tool, which ingests
// Dota 2 event logs and computes per-window player and league metrics.
package main

import "github.com/pable/go-dota-metrics/cmd"

func main() {
	cmd.Execute()
}
