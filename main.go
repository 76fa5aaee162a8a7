package main

import "grantdesk/cmd"

func main() {
	cmd.Execute()
}
