package main

import "github.com/oshokin/modloader-dist/cmd/build-lua/cmd"

func main() {
	cmd.Execute()
}
