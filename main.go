package main

import "github.com/maxgio92/wachy/pkg/cmd"

func main() {
	cmd.Execute()
}
