package main

import "github.com/housingdocs/tribunal-scraper/cmd"

func main() {
	cmd.Execute()
}
