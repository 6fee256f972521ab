package main

import (
	"github.com/hhkbp2/workgen"
	"github.com/hhkbp2/workgen/binding"
	"github.com/hhkbp2/workgen/workload"
)

func main() {
	binding.AddBindings()
	workload.AddWorkloads()
	workgen.Main()
}
