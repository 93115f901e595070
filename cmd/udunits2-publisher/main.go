package main

import "github.com/oshokin/udunits2-publisher/cmd/udunits2-publisher/cmd"

func main() {
	cmd.Execute()
}
