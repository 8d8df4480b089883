package main

import (
	"os"

	"mcbedrock-downloader/cli"
)

func main() {
	os.Exit(cli.Execute())
}
