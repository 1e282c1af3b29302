package main

import "github.com/veidt/faceprobe/cmd"

func main() {
	cmd.Execute()
}
