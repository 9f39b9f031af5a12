package main

import "github.com/oshokin/pool-guard/cmd/pool-console/cmd"

func main() {
	cmd.Execute()
}
