package main

import (
	"github.com/psufleet/coldswap/cmd"
)

func main() {
	cmd.Execute()
}
