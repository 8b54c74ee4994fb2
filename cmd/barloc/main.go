package main

import "github.com/MeKo-Tech/barloc/cmd/barloc/cmd"

func main() {
	cmd.Execute()
}
