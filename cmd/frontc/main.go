// cmd/frontc/main.go
package main

import (
	"fmt"
	"os"

	"frontc/internal/config"
	"frontc/internal/driver"
)

// main is the driver binary's entry point, grounded on cmd/sentra's own
// checkSyntax: read input, run the pipeline inside whatever recovery it
// needs, report and exit non-zero on the first failure, zero otherwise.
// Unlike cmd/sentra's many subcommands, spec.md §6 gives this binary a
// single surface: one positional argument (the configuration file
// create_core_data takes), --help, and nothing else — "flags are
// limited to what the config file already specifies."
func main() {
	args := os.Args[1:]

	if len(args) == 0 || isHelp(args[0]) {
		printUsage()
		if len(args) == 0 {
			os.Exit(1)
		}
		os.Exit(0)
	}

	configPath := args[0]

	core, ok := driver.CreateCoreData(configPath)
	if !ok {
		os.Exit(1)
	}
	defer driver.ReleaseCoreData(core)

	if !driver.RunCompilation(core, false) {
		os.Exit(1)
	}

	if core.Config.StdFilepath != "" {
		if !driver.RunCompilation(core, true) {
			os.Exit(1)
		}
	}

	os.Exit(0)
}

func isHelp(arg string) bool {
	return arg == "--help" || arg == "-h" || arg == "help"
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "usage: frontc <config-file>")
	fmt.Fprintln(os.Stderr)
	fmt.Fprint(os.Stderr, config.Schema())
}
