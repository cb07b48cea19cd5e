package main

import "github.com/benchdrive/govisa/cmd/visactl/cmd"

func main() {
	cmd.Execute()
}
