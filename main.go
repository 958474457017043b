package main

import "github.com/walak/walak/cmd"

func main() {
	cmd.Execute()
}
