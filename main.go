package main

import "github.com/packguard/packguard/cmd/packguard"

func main() { packguard.Execute() }
