package main

import "autopress/cmd"

func main() {
	cmd.Execute()
}
