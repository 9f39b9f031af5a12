package main

import "github.com/oshokin/pool-guard/cmd/pool-simulator/cmd"

func main() {
	cmd.Execute()
}
