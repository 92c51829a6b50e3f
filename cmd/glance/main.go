package main

import "github.com/felixgeelhaar/glance/cmd/glance/cli"

func main() {
	cli.Execute()
}
