package main

import (
	"os"

	"github.com/relata/relata/crmservice"
)

func main() {
	if err := crmservice.Run(); err != nil {
		os.Exit(1)
	}
}
