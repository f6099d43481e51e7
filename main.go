package main

import (
	"shireesh.com/buildergen/cmd"
)

func main() {
	cmd.Execute()
}
