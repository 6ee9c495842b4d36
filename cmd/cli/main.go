package main

import "petshop/cmd/cli/command"

func main() {
	command.Execute()
}
