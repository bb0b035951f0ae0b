package main

import "github.com/ganpare/densai/cmd"

func main() {
	cmd.Execute()
}
