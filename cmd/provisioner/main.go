// Package main provides the provisioner service and CLI.
package main

import "github.com/mscno/provisioner/cmd/provisioner/commands"

func main() {
	commands.Execute(Version)
}
