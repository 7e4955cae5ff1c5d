package main

import "github.com/oshokin/modloader-dist/cmd/make-dist/cmd"

func main() {
	cmd.Execute()
}
