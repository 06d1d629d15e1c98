package main

import "github.com/example/poolside-scheduler/cmd"

func main() {
	cmd.Execute()
}
