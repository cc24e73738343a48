package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/coolbeans/planfinder/pkg/bulk"
	"github.com/coolbeans/planfinder/pkg/discover"
	"github.com/coolbeans/planfinder/pkg/match"
	"github.com/coolbeans/planfinder/pkg/probe"
	"github.com/coolbeans/planfinder/pkg/registry"
	"github.com/coolbeans/planfinder/pkg/types"
	"github.com/spf13/cobra"
)

var version = "0.1.0"

// Shared source/config flags, bound as persistent flags on the root.
var (
	organisationsPath string
	successorsPath    string
	jointPlansPath    string
	configPath        string
	verbose           bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "planfinder",
		Short: "Local plan URL discovery for UK planning authorities",
		Long: `Planfinder resolves the web location of a local planning
authority's local plan documents, accounting for abolished authorities
absorbed by successors and for plans published on shared joint-plan
websites, and reconciles free-text organisation names against the
canonical register.

Candidate URLs are tried in strict precedence order: joint plan website,
successor website, the authority's own registered website, then generic
domain-pattern guesses.`,
		Version: version,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := slog.LevelWarn
			if verbose {
				level = slog.LevelInfo
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
		},
	}

	rootCmd.PersistentFlags().StringVar(&organisationsPath, "organisations", "var/cache/organisation.csv", "Organisation register CSV")
	rootCmd.PersistentFlags().StringVar(&successorsPath, "successors", "data/successors.json", "Successor mapping JSON file")
	rootCmd.PersistentFlags().StringVar(&jointPlansPath, "joint-plans", "data/joint-plans.json", "Joint local plan mapping JSON file")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Probe politeness config YAML (optional)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log tier selection and probe activity")

	rootCmd.AddCommand(resolveCmd())
	rootCmd.AddCommand(resolveAllCmd())
	rootCmd.AddCommand(candidatesCmd())
	rootCmd.AddCommand(matchCmd())
	rootCmd.AddCommand(validateCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadRegistry loads and validates the three configured sources.
func loadRegistry() (*registry.Registry, error) {
	reg, err := registry.Load(registry.Sources{
		Organisations: organisationsPath,
		Successors:    successorsPath,
		JointPlans:    jointPlansPath,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load registry: %w", err)
	}
	return reg, nil
}

// loadProbeConfig loads the politeness config, or defaults when no file
// is given.
func loadProbeConfig() (*probe.Config, error) {
	if configPath == "" {
		return probe.DefaultConfig(), nil
	}
	return probe.LoadConfig(configPath)
}

func resolveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "resolve <authority-id>",
		Short: "Resolve the local plan website for one authority",
		Long: `Resolve the local plan website for a single authority.

Candidates are generated in precedence order and probed until one is
reachable. Exhausting every candidate is reported as not found, not as
an error.

Examples:
  planfinder resolve local-authority:BOL
  planfinder resolve local-authority:MAN --format json -v`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			formatStr, _ := cmd.Flags().GetString("format")

			reg, err := loadRegistry()
			if err != nil {
				return err
			}
			config, err := loadProbeConfig()
			if err != nil {
				return err
			}

			id := types.AuthorityID(args[0])
			if config.Excluded(id) {
				return fmt.Errorf("authority %s is excluded from automated resolution", id)
			}

			resolver := discover.NewResolver(reg, probe.NewProber(config))
			resolution := resolver.Resolve(cmd.Context(), id)

			switch formatStr {
			case "json":
				data, err := json.MarshalIndent(resolution, "", "  ")
				if err != nil {
					return fmt.Errorf("failed to serialize resolution: %w", err)
				}
				fmt.Println(string(data))
			default:
				if resolution.Found {
					fmt.Printf("%s\t%s\t%s\n", resolution.AuthorityID, resolution.URL, resolution.Tier)
				} else {
					fmt.Printf("%s\tnot found (%d candidates tried)\n", resolution.AuthorityID, len(resolution.Attempts))
				}
			}

			if !resolution.Found {
				os.Exit(2)
			}
			return nil
		},
	}

	cmd.Flags().StringP("format", "f", "text", "Output format (text, json)")
	return cmd
}

func candidatesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "candidates <authority-id>",
		Short: "List candidate URLs without probing them",
		Long: `List the ordered candidate URL sequence for an authority without any
network access. Useful for checking which tier a mapping lands in.

Examples:
  planfinder candidates local-authority:BST
  planfinder candidates local-authority:DAC --format json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			formatStr, _ := cmd.Flags().GetString("format")

			reg, err := loadRegistry()
			if err != nil {
				return err
			}

			generator := discover.NewGenerator(reg)
			candidates := generator.Candidates(types.AuthorityID(args[0]))

			switch formatStr {
			case "json":
				data, err := json.MarshalIndent(candidates, "", "  ")
				if err != nil {
					return fmt.Errorf("failed to serialize candidates: %w", err)
				}
				fmt.Println(string(data))
			default:
				for i, candidate := range candidates {
					fmt.Printf("%2d  %-16s %s\n", i+1, candidate.Tier, candidate.URL)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringP("format", "f", "text", "Output format (text, json)")
	return cmd
}

func resolveAllCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "resolve-all",
		Short: "Resolve local plan websites for every authority in the register",
		Long: `Resolve every planning authority in the register over a bounded
worker pool. Rate limiting is enforced per target domain, shared across
workers, so parallel runs never hammer a shared joint-plan domain.

Excluded authorities (from --exclude or the config file) are skipped
entirely and never probed, so manually-curated results stay untouched.

Examples:
  planfinder resolve-all --workers 8
  planfinder resolve-all --exclude local-authority:TOW,local-authority:SAL
  planfinder resolve-all --start-from local-authority:MAN --limit 10 -o report.json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			workers, _ := cmd.Flags().GetInt("workers")
			excludeStr, _ := cmd.Flags().GetString("exclude")
			limit, _ := cmd.Flags().GetInt("limit")
			startFrom, _ := cmd.Flags().GetString("start-from")
			outputPath, _ := cmd.Flags().GetString("output")
			formatStr, _ := cmd.Flags().GetString("format")

			reg, err := loadRegistry()
			if err != nil {
				return err
			}
			config, err := loadProbeConfig()
			if err != nil {
				return err
			}

			ids := reg.AuthorityIDs()
			if startFrom != "" {
				ids = startFromID(ids, types.AuthorityID(startFrom))
				if ids == nil {
					return fmt.Errorf("--start-from authority %s not in register", startFrom)
				}
			}
			if limit > 0 && limit < len(ids) {
				ids = ids[:limit]
			}

			exclusions := make([]types.AuthorityID, 0)
			for _, excluded := range config.Exclude {
				exclusions = append(exclusions, types.AuthorityID(excluded))
			}
			if excludeStr != "" {
				for _, excluded := range strings.Split(excludeStr, ",") {
					if trimmed := strings.TrimSpace(excluded); trimmed != "" {
						exclusions = append(exclusions, types.AuthorityID(trimmed))
					}
				}
			}

			resolver := discover.NewResolver(reg, probe.NewProber(config))
			runner := bulk.NewRunner(resolver,
				bulk.WithWorkers(workers),
				bulk.WithExclusions(exclusions),
				bulk.WithProgress(func(progress bulk.Progress) {
					fmt.Fprintf(os.Stderr, "[%d/%d] %s\n", progress.Completed, progress.Total, progress.Current)
				}),
			)

			report := runner.Run(cmd.Context(), ids)

			var output []byte
			if formatStr == "json" || outputPath != "" {
				output, err = report.ToJSON()
				if err != nil {
					return fmt.Errorf("failed to serialize report: %w", err)
				}
			}

			if outputPath != "" {
				if err := os.WriteFile(outputPath, output, 0644); err != nil {
					return fmt.Errorf("failed to write report: %w", err)
				}
				fmt.Fprintf(os.Stderr, "Report written to %s\n", outputPath)
			}

			if formatStr == "json" {
				fmt.Println(string(output))
			} else {
				fmt.Println(report.String())
			}
			return nil
		},
	}

	cmd.Flags().IntP("workers", "w", bulk.DefaultWorkers, "Worker pool width")
	cmd.Flags().String("exclude", "", "Comma-separated authority ids to skip entirely")
	cmd.Flags().Int("limit", 0, "Resolve at most this many authorities (0 = all)")
	cmd.Flags().String("start-from", "", "Skip authorities before this id in register order")
	cmd.Flags().StringP("output", "o", "", "Write the JSON report to a file")
	cmd.Flags().StringP("format", "f", "text", "Output format (text, json)")
	return cmd
}

// startFromID trims ids so the sequence begins at the given authority.
// Returns nil when the id is not present.
func startFromID(ids []types.AuthorityID, from types.AuthorityID) []types.AuthorityID {
	for i, id := range ids {
		if id == from {
			return ids[i:]
		}
	}
	return nil
}

func matchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "match [name]...",
		Short: "Match organisation names against the canonical register",
		Long: `Match free-text organisation names to canonical organisation
identifiers. Matching is deliberately conservative: exact official
names, registered alternate names, then case-insensitive equality;
never fuzzy or substring matching. Names with no confident match are
reported as unmatched rather than guessed.

Examples:
  planfinder match "Bolton Council"
  planfinder match "Manchester City Council" "Unknown Council" --format json
  planfinder match --file names.txt`,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatStr, _ := cmd.Flags().GetString("format")
			filePath, _ := cmd.Flags().GetString("file")

			names := append([]string(nil), args...)
			if filePath != "" {
				fileNames, err := readNamesFile(filePath)
				if err != nil {
					return err
				}
				names = append(names, fileNames...)
			}
			if len(names) == 0 {
				return fmt.Errorf("no names given; pass names as arguments or use --file")
			}

			reg, err := loadRegistry()
			if err != nil {
				return err
			}

			matcher := match.NewMatcher(reg)
			results := matcher.MatchAll(names)

			switch formatStr {
			case "json":
				data, err := json.MarshalIndent(results, "", "  ")
				if err != nil {
					return fmt.Errorf("failed to serialize results: %w", err)
				}
				fmt.Println(string(data))
			default:
				for _, result := range results {
					if result.Matched() {
						fmt.Printf("%s\t%s\t%s\n", result.Input, result.MatchedID, result.Tier)
					} else {
						fmt.Printf("%s\t-\tno match\n", result.Input)
					}
				}
			}
			return nil
		},
	}

	cmd.Flags().String("file", "", "Read names from a file, one per line")
	cmd.Flags().StringP("format", "f", "text", "Output format (text, json)")
	return cmd
}

// readNamesFile reads one name per line, skipping blanks.
func readNamesFile(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open names file: %w", err)
	}
	defer file.Close()

	var names []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			names = append(names, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read names file: %w", err)
	}
	return names, nil
}

func validateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate the mapping files and organisation register",
		Long: `Load all three configuration sources and run the structural checks:
dangling successor references, defunct successors, asymmetric joint
plan membership, duplicate register names. Exits non-zero on the first
problem found.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := loadRegistry()
			if err != nil {
				return err
			}
			fmt.Printf("OK: %d organisations, registry valid\n", reg.Len())
			return nil
		},
	}
}
