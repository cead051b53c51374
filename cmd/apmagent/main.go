package main

import (
	"os"

	"github.com/zeusync/metricstore/cmd/apmagent/commands"
)

func main() {
	if err := commands.NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
