package main

import (
	"flag"
	"fmt"
	"os"
	"pixeld/internal/di"
	"pixeld/internal/structures"
)

func main() {
	flags := &structures.CliFlags{}
	flag.StringVar(&flags.ConfigPath, "config", "config.yaml", "path to the YAML config file")
	flag.BoolVar(&flags.DebugMode, "debug", false, "mirror logs to stderr")
	flag.Parse()

	if _, err := di.InitApp(flags); err != nil {
		fmt.Fprintf(os.Stderr, "pixeld: %s\n", err)
		os.Exit(1)
	}
}
