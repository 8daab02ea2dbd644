package main

import "github.com/kidslingo/kidslingo/cmd"

func main() {
	cmd.Execute()
}
