package main

import "boardbot/cmd"

func main() {
	cmd.Execute()
}
