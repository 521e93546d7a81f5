package main

import (
	"github.com/NVIDIA/cns-nodekit/pkg/cli"
)

func main() {
	cli.Execute()
}
