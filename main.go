package main

import "audio-mastering-engine/cmd"

func main() {
	cmd.Execute()
}
