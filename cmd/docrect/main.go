package main

import "github.com/MeKo-Tech/docrect/cmd/docrect/cmd"

func main() {
	cmd.Execute()
}
