package main

import "github.com/samsaffron/mdstream/cmd"

func main() {
	cmd.Execute()
}
