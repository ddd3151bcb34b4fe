package main

import "github.com/oneweb/helpdesk-chat/cmd"

func main() {
	cmd.Execute()
}
