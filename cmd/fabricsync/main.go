package main

import "github.com/hupe1980/fabricsync/internal/cli"

func main() {
	cli.Execute()
}
