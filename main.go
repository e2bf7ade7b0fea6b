package main

import "github.com/termacl/termacl/cmd"

func main() {
	cmd.Execute()
}
