package main

import "github.com/wormhole-demo/vaa-verifier/cmd"

func main() {
	cmd.Execute()
}
