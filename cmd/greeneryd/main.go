package main

import (
	"context"
	"fmt"
	"os"

	"greenery/internal/cli"
)

func main() {
	if err := cli.Run(context.Background(), os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "greeneryd: %v\n", err)
		os.Exit(1)
	}
}
