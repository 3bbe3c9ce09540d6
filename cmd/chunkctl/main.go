package main

import (
	"os"

	"chunkstore/cmd/chunkctl/commands"

	"github.com/sirupsen/logrus"
)

func main() {
	if err := commands.Execute(); err != nil {
		logrus.Error(err)
		os.Exit(1)
	}
}
