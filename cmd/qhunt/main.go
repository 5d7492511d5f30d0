package main

import "github.com/mcoot/qhunt/internal/cli"

func main() {
	cli.Execute()
}
