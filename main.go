package main

import "github.com/KaramelBytes/sheetdash/cmd"

func main() {
	cmd.Execute()
}
