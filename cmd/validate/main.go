package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jwebster45206/infamy/internal/catalog"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, "Usage: %s <catalog.json>\n", os.Args[0])
		os.Exit(1)
	}

	filename := os.Args[1]
	if err := validateFile(filename); err != nil {
		fmt.Fprintf(os.Stderr, "Validation failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("Catalog file is valid!")
}

func validateFile(filename string) error {
	fmt.Printf("Validating %s...\n", filename)

	if !strings.HasSuffix(filepath.Base(filename), ".json") {
		return fmt.Errorf("catalog file must have .json extension: %s", filepath.Base(filename))
	}

	seed, err := catalog.LoadSeed(filename)
	if err != nil {
		return err
	}

	if errs := seed.Validate(); len(errs) > 0 {
		lines := make([]string, len(errs))
		for i, e := range errs {
			lines[i] = "  - " + e.Error()
		}
		return fmt.Errorf("validation errors in %s:\n%s", filename, strings.Join(lines, "\n"))
	}

	fmt.Printf("%d items, %d quests\n", len(seed.Items), len(seed.Quests))
	return nil
}
