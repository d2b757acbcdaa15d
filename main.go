package main

import "github.com/emberlink/ember/cmd"

func main() {
	cmd.Execute()
}
