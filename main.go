package main

import "github.com/notargets/goreservoir/cmd"

func main() {
	cmd.Execute()
}
