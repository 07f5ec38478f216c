package main

import "github.com/oshokin/msipack/cmd/msipack/cmd"

func main() {
	cmd.Execute()
}
