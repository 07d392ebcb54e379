package main

import "github.com/JakeFAU/threads-api/cmd"

func main() {
	cmd.Execute()
}
