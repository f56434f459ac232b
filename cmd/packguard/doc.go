// Package packguard provides the command-line interface for packguard. It
// configures subcommands (scan, run, watch, cache, history, config), parses
// flags, and executes the selected command.
//
// Typical usage from a main package:
//
//	package main
//	import "github.com/packguard/packguard/cmd/packguard"
//	func main() { packguard.Execute() }
package packguard
