// cmd/tools/partner-config/main.go
//
// Operational helper for inspecting the partner integration configuration
// without starting the server.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"sort"

	"uniapply/internal/common/config"
	"uniapply/internal/registry"
)

func main() {
	listCmd := flag.NewFlagSet("list", flag.ExitOnError)
	showCmd := flag.NewFlagSet("show", flag.ExitOnError)
	validateCmd := flag.NewFlagSet("validate", flag.ExitOnError)

	partnerCode := showCmd.String("partner", "", "Partner code (e.g., uct)")

	if len(os.Args) < 2 {
		help()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "list":
		listCmd.Parse(os.Args[2:])
		cfg := mustLoad()
		listPartners(cfg)
	case "show":
		showCmd.Parse(os.Args[2:])
		if *partnerCode == "" {
			fmt.Println("Error: -partner is required for show.")
			showCmd.Usage()
			os.Exit(1)
		}
		cfg := mustLoad()
		showPartner(cfg, *partnerCode)
	case "validate":
		validateCmd.Parse(os.Args[2:])
		// Load already runs full validation; reaching here means it passed.
		cfg := mustLoad()
		fmt.Printf("Configuration OK: %d partner(s) configured.\n", len(cfg.Partners))
	default:
		help()
		os.Exit(1)
	}
}

func mustLoad() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Configuration invalid: %v\n", err)
		os.Exit(1)
	}
	return cfg
}

func listPartners(cfg *config.Config) {
	codes := make([]string, 0, len(cfg.Partners))
	for code := range cfg.Partners {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	fmt.Printf("%-15s %-8s %-18s %-16s %s\n", "CODE", "ENABLED", "AUTH", "FALLBACK", "DIRECT")
	for _, code := range codes {
		partner := cfg.Partners[code]
		fallbackMethod := string(partner.Fallback.Method)
		if fallbackMethod == "" {
			fallbackMethod = "-"
		}
		fmt.Printf("%-15s %-8t %-18s %-16s %t\n",
			code, partner.Enabled, partner.AuthMethod, fallbackMethod,
			partner.Features.DirectSubmission)
	}
}

func showPartner(cfg *config.Config, code string) {
	reg := registry.New(cfg.Partners)
	partner, ok := reg.Lookup(code)
	if !ok {
		fmt.Printf("Unknown partner: %s\n", code)
		os.Exit(1)
	}

	// Never print credentials.
	partner.Credentials = config.Credentials{}
	partner.Webhook.Secret = ""

	out, err := json.MarshalIndent(partner, "", "  ")
	if err != nil {
		fmt.Printf("Failed to render partner record: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(string(out))
}

func help() {
	fmt.Println("Usage: partner-config <command> [flags]")
	fmt.Println("Commands:")
	fmt.Println("  list                 List all configured partners")
	fmt.Println("  show -partner <code> Show one partner record (credentials redacted)")
	fmt.Println("  validate             Validate the configuration and exit")
}
