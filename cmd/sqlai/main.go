package main

import (
	"context"
	"os"

	"github.com/1broseidon/sqlai/internal/cli"
)

func main() {
	os.Exit(cli.Execute(context.Background()))
}
