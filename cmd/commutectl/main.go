// Package main provides commutectl, the command-line companion to the
// commute optimizer API.
package main

import "github.com/shashank-tandan21/Daily-Commute-Optimizer/internal/cli"

func main() {
	cli.Execute()
}
