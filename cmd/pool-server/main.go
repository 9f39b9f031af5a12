package main

import "github.com/oshokin/pool-guard/cmd/pool-server/cmd"

func main() {
	cmd.Execute()
}
