package main

import "github.com/mika76/terninger/cmd/terninger/cmd"

func main() {
	cmd.Execute()
}
