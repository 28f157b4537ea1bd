package main

import "github.com/local/docpress/internal/cli"

func main() {
	cli.Execute()
}
