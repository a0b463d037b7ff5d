package main

import "github.com/taurusgroup/cmp-keygen/internal/cli"

func main() {
	cli.Execute()
}
