package main

import "github.com/eugene-nechvoloda/MeetyAI-sub000/cmd/cli"

func main() {
	cli.Execute()
}
