package main

import "github.com/agentpkg/promptrun/pkg/cmd"

func main() {
	cmd.Execute()
}
