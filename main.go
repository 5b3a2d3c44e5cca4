package main

import (
	"github.com/Nicolas-Richard/k8s-pdb-checker/cmd"
)

func main() {
	cmd.Execute()
}
