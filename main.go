package main

import "github.com/facilimate/tquery/cmd"

func main() {
	cmd.Execute()
}
