package main

import (
	"os"

	"github.com/carebridge/carebridge/reminderworker"
)

func main() {
	if err := reminderworker.Run(); err != nil {
		os.Exit(1)
	}
}
