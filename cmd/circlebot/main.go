package main

import "github.com/azubrytski-dev/challange-bot/internal/cli"

func main() {
	cli.Execute()
}
