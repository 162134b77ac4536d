package main

import "github.com/sharetube/watchsync/cmd/syncctl/cmd"

func main() {
	cmd.Execute()
}
