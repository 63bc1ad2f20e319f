package main

import "kpiboard/internal/cli"

func main() {
	cli.Execute()
}
