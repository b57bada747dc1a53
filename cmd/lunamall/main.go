package main

import "github.com/lunamall/lunamall/internal/cli"

func main() {
	cli.Execute()
}
