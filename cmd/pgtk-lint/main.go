// Command pgtk-lint checks migration changelog files against the naming
// conventions in pkg/migration/lint and exits non-zero on any violation.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/devkit-go/pgtk/pkg/migration/lint"
)

func main() {
	flag.Parse()
	paths := flag.Args()
	if len(paths) == 0 {
		paths = []string{"migrations"}
	}

	var files []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			fmt.Fprintf(os.Stderr, "pgtk-lint: %v\n", err)
			os.Exit(1)
		}
		if !info.IsDir() {
			files = append(files, p)
			continue
		}
		matches, err := filepath.Glob(filepath.Join(p, "*.xml"))
		if err != nil {
			fmt.Fprintf(os.Stderr, "pgtk-lint: %v\n", err)
			os.Exit(1)
		}
		files = append(files, matches...)
	}

	var failed bool
	for _, f := range files {
		violations, err := lint.File(f)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", f, err)
			failed = true
			continue
		}
		for _, v := range violations {
			fmt.Println(v.String())
			failed = true
		}
	}

	if failed {
		os.Exit(1)
	}
	fmt.Printf("%d changelog file(s) clean\n", len(files))
}
