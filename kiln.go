package main

import (
	"github.com/kiln-build/kiln/cmd"
	"github.com/kiln-build/kiln/pkg/env"
	"github.com/kiln-build/kiln/pkg/log"
)

func main() {
	if err := env.Process(); err != nil {
		log.Fatal("environment failure", "error", err)
	}

	if err := cmd.Execute(); err != nil {
		log.Fatal("kiln failure", "error", err)
	}
}
