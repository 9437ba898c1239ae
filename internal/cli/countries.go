package cli

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sort"

	"github.com/grscicoll/ihsync/internal/config"
	"github.com/grscicoll/ihsync/internal/countries"
	"github.com/grscicoll/ihsync/internal/ih"
)

// CountriesCommand reports country mapping coverage against the directory.
type CountriesCommand struct {
	Verbose bool
}

// NewCountriesCommand creates a new CountriesCommand.
func NewCountriesCommand() *CountriesCommand {
	return &CountriesCommand{}
}

// ParseFlags parses command line flags
func (cmd *CountriesCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("countries", flag.ExitOnError)

	fs.BoolVar(&cmd.Verbose, "verbose", false, "List every mapped country, not only the gaps")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s countries [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Fetch the free-text country names the IH directory uses and report\n")
		fmt.Fprintf(os.Stderr, "which of them the country matcher cannot resolve. Unresolved names\n")
		fmt.Fprintf(os.Stderr, "leave addresses without a country during sync; extend the override\n")
		fmt.Fprintf(os.Stderr, "table to close the gaps.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
	}

	return fs.Parse(args)
}

// Run executes the countries command
func (cmd *CountriesCommand) Run() error {
	cfg := config.NewConfig()

	client := ih.NewClient(cfg.IH.BaseURL)
	names, err := client.FetchCountries(context.Background())
	if err != nil {
		return fmt.Errorf("failed to fetch countries: %w", err)
	}

	matcher := countries.DefaultMatcher()
	mapped, unmapped := matcher.MatchAll(names)

	fmt.Printf("Directory uses %d distinct country names: %d mapped, %d unmapped\n",
		len(names), len(mapped), len(unmapped))

	if cmd.Verbose {
		keys := make([]string, 0, len(mapped))
		for name := range mapped {
			keys = append(keys, name)
		}
		sort.Strings(keys)
		fmt.Println("\nMapped:")
		for _, name := range keys {
			fmt.Printf("  %-40s -> %s\n", name, mapped[name].Code)
		}
	}

	if len(unmapped) > 0 {
		sort.Strings(unmapped)
		fmt.Println("\nUnmapped:")
		for _, name := range unmapped {
			fmt.Printf("  %s\n", name)
		}
	}

	return nil
}
