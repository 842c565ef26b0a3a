package main

import "github.com/tagwing/birdtag/cmd"

func main() {
	cmd.Execute()
}
