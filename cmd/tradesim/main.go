package main

import "github.com/rustyeddy/tradesim/internal/cli"

func main() {
	cli.Execute()
}
