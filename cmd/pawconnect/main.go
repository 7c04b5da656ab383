package main

import (
	"context"
	"os"

	"github.com/tbourn/pawconnect/internal/cli"
)

func main() {
	cmd := cli.NewRootCmd()
	if err := cli.Execute(context.Background(), cmd); err != nil {
		os.Exit(1)
	}
}
