package main

import "localecomm/cmd"

func main() {
	cmd.Execute()
}
