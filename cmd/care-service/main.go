package main

import (
	"os"

	"github.com/carebridge/carebridge/careservice"
)

func main() {
	if err := careservice.Run(); err != nil {
		os.Exit(1)
	}
}
