package main

import "github.com/pixeltrip/tripboard/internal/cli"

func main() {
	cli.Execute()
}
