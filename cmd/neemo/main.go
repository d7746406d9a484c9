package main

import "github.com/adfharrison1/neemo/pkg/cli"

func main() {
	cli.Execute()
}
