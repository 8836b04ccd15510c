package main

import "github.com/OpenTraceLab/OpenTraceCW310/cmd/cw310/cmd"

func main() {
	cmd.Execute()
}
