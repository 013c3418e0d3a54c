package main

import (
	"github.com/kubecc-io/linesearch/pkg/linesearch"
)

func main() {
	linesearch.Execute()
}
