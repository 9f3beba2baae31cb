package main

import "github.com/KaramelBytes/churnlens/cmd"

func main() {
	cmd.Execute()
}
