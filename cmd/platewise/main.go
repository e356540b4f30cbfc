// Command platewise is the menu costing engine CLI: it initialises a
// project, imports declarative entity files, calculates recipe costs
// and margins, watches the project tree, and serves the JSON API.
package main

import (
	"flag"
	"fmt"
	"os"
)

// Exit codes
const (
	exitOK             = 0
	exitRuntimeFailure = 1
	exitBadInput       = 2
	exitNotInitialised = 409
)

const usage = `usage: platewise [-config FILE] [-root DIR] <command> [args]

commands:
  initialise                 create the project tree, config and store
  import <files...>          import entity files into the store
  recipe calculate <slugs>   evaluate cost and margin for recipes
  recipe report              evaluate every recipe and print the report
  watch                      watch the project tree and import changes
  serve                      run the JSON API (with the watcher if enabled)
`

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	flags := flag.NewFlagSet("platewise", flag.ContinueOnError)
	configPath := flags.String("config", "", "path to the TOML config file")
	root := flags.String("root", "", "project root override")
	flags.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	if err := flags.Parse(args); err != nil {
		return exitBadInput
	}
	rest := flags.Args()
	if len(rest) == 0 {
		flags.Usage()
		return exitBadInput
	}

	app, err := newApp(*configPath, *root)
	if err != nil {
		fmt.Fprintln(os.Stderr, "platewise:", err)
		return exitRuntimeFailure
	}
	defer app.close()

	command, rest := rest[0], rest[1:]
	if command != "initialise" && !app.initialised() {
		fmt.Fprintln(os.Stderr, "platewise: project not initialised, run `platewise initialise` first")
		return exitNotInitialised
	}

	switch command {
	case "initialise":
		return app.cmdInitialise()
	case "import":
		return app.cmdImport(rest)
	case "recipe":
		if len(rest) == 0 {
			flags.Usage()
			return exitBadInput
		}
		switch rest[0] {
		case "calculate":
			return app.cmdCalculate(rest[1:])
		case "report":
			return app.cmdReport()
		}
		flags.Usage()
		return exitBadInput
	case "watch":
		return app.cmdWatch()
	case "serve":
		return app.cmdServe()
	default:
		flags.Usage()
		return exitBadInput
	}
}
