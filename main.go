package main

import "hashpipe/cmd"

func main() {
	cmd.Execute()
}
