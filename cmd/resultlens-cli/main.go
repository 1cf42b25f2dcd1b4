package main

import "resultlens/cmd/resultlens-cli/cmd"

func main() {
	cmd.Execute()
}
