// Package main provides the tokengate CLI for publishing and reading
// token-gated secrets.
package main

import "github.com/velsand/tokengate/cmd/tokengate/commands"

func main() {
	commands.Execute(Version)
}
