package main

import (
	"gallarr/cmd"
)

func main() {
	cmd.Execute()
}
