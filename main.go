package main

import (
	"os"

	"github.com/akshay-since1987/kineticev-sub002/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
