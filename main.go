package main

import "github.com/eventflow/event-management/cmd"

func main() {
	cmd.Execute()
}
