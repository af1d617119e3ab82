// Command sqllint checks that every inline SQL constant carries a unique
// "--sql <uuid>" marker line, which the SQL runner relies on for logging.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("sqllint", flag.ContinueOnError)
	fs.SetOutput(stderr)
	quiet := fs.Bool("q", false, "print nothing when all queries are marked")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	targets := fs.Args()
	if len(targets) == 0 {
		targets = []string{"."}
	}

	r := newReport()
	for _, target := range targets {
		if err := r.lintTree(target); err != nil {
			fmt.Fprintf(stderr, "sqllint: %v\n", err)
			return 2
		}
	}

	if len(r.violations) > 0 {
		fmt.Fprintf(stderr, "sqllint: %d SQL marker violation(s)\n", len(r.violations))
		for _, v := range r.violations {
			fmt.Fprintf(stderr, "  %s:%d %s (%s)\n", v.file, v.line, v.message, v.name)
		}
		return 1
	}
	if !*quiet {
		fmt.Fprintf(stdout, "sqllint: %d marked queries ok\n", len(r.seen))
	}
	return 0
}
