package main

import "github.com/tansive/restspec/internal/cli"

func main() {
	cli.Execute()
}
