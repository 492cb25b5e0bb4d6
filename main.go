package main

import "github.com/papapumpkin/citrank/cmd"

func main() {
	cmd.Execute()
}
