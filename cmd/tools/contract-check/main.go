// cmd/tools/contract-check/main.go
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"sort"

	"scrumbot/internal/common/validation"
	"scrumbot/pkg/registry"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	if len(args) < 1 {
		help(stderr)
		return 1
	}

	listCmd := flag.NewFlagSet("list", flag.ContinueOnError)
	listPath := listCmd.String("path", "", "registry file (default: embedded registry)")

	validateCmd := flag.NewFlagSet("validate", flag.ContinueOnError)
	validatePath := validateCmd.String("path", "", "registry file (default: embedded registry)")

	checkCmd := flag.NewFlagSet("check", flag.ContinueOnError)
	checkPath := checkCmd.String("path", "", "registry file (default: embedded registry)")
	contractID := checkCmd.String("contract", "", "contract id, e.g. pipeline.dry_run")
	samplePath := checkCmd.String("file", "", "JSON document to check ('-' for stdin)")

	for _, fs := range []*flag.FlagSet{listCmd, validateCmd, checkCmd} {
		fs.SetOutput(stderr)
	}

	switch args[0] {
	case "list":
		if err := listCmd.Parse(args[1:]); err != nil {
			return 1
		}
		reg, err := loadRegistry(*listPath)
		if err != nil {
			fmt.Fprintf(stderr, "Error loading registry: %v\n", err)
			return 1
		}
		contracts := append([]registry.Contract(nil), reg.Contracts...)
		sort.Slice(contracts, func(i, j int) bool { return contracts[i].ID < contracts[j].ID })
		fmt.Fprintf(stdout, "Registry version %s (%d contracts)\n", reg.Version, len(contracts))
		for _, c := range contracts {
			fmt.Fprintf(stdout, "  %-28s %-6s %-20s %s\n", c.ID, c.Method, c.Endpoint, c.Description)
		}

	case "validate":
		if err := validateCmd.Parse(args[1:]); err != nil {
			return 1
		}
		reg, err := loadRegistry(*validatePath)
		if err != nil {
			fmt.Fprintf(stderr, "Error loading registry: %v\n", err)
			return 1
		}
		if err := validation.NewValidator(reg).Compile(); err != nil {
			fmt.Fprintf(stderr, "Registry invalid: %v\n", err)
			return 1
		}
		fmt.Fprintf(stdout, "All %d contract schemas compile.\n", len(reg.Contracts))

	case "check":
		if err := checkCmd.Parse(args[1:]); err != nil {
			return 1
		}
		if *contractID == "" || *samplePath == "" {
			fmt.Fprintln(stderr, "Error: -contract and -file are required for check.")
			checkCmd.Usage()
			return 1
		}
		reg, err := loadRegistry(*checkPath)
		if err != nil {
			fmt.Fprintf(stderr, "Error loading registry: %v\n", err)
			return 1
		}
		body, err := readSample(*samplePath)
		if err != nil {
			fmt.Fprintf(stderr, "Error reading sample: %v\n", err)
			return 1
		}
		result, err := validation.NewValidator(reg).ValidateDocument(*contractID, body)
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
		if !result.Valid {
			fmt.Fprintf(stdout, "%s: INVALID\n", *contractID)
			for _, msg := range result.GetErrorMessages() {
				fmt.Fprintf(stdout, "  - %s\n", msg)
			}
			return 2
		}
		fmt.Fprintf(stdout, "%s: OK\n", *contractID)

	default:
		help(stderr)
		return 1
	}
	return 0
}

func loadRegistry(path string) (*registry.ContractRegistry, error) {
	if path == "" {
		return registry.Default(), nil
	}
	return registry.LoadRegistry(path)
}

func readSample(path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(path)
}

func help(w io.Writer) {
	fmt.Fprintln(w, "Usage: contract-check <command> [arguments]")
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  list      List the contracts of a registry")
	fmt.Fprintln(w, "  validate  Compile every contract schema")
	fmt.Fprintln(w, "  check     Validate a JSON document against one contract")
}
