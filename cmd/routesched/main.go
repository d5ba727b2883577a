package main

import "github.com/example/route-scheduler/internal/interfaces/cli"

func main() {
	cli.Execute()
}
