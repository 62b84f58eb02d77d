package main

import (
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// globalFlags holds the persistent flags every subcommand reads,
// grounded on C360Studio-semspec's rootCmd() pattern: one cobra.Command
// tree, persistent flags bound once in root, subcommands reading them
// back out of the command they were invoked on.
type globalFlags struct {
	ontologyPath string
	configPath   string
	blocking     string
	cache        string
	workers      int
	timeout      string
	logLevel     string
}

var flags globalFlags

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dlreasoner",
		Short: "A tableau-based description logic reasoner",
		Long: "dlreasoner loads an ontology description, asserts it into a fresh reasoning " +
			"session, and answers satisfiability, subsumption and classification queries against it.",
		SilenceUsage: true,
	}

	pf := cmd.PersistentFlags()
	pf.StringVarP(&flags.ontologyPath, "ontology", "f", "", "path to the ontology YAML file (required)")
	pf.StringVar(&flags.configPath, "config", "", "path to a reasoner config YAML file")
	pf.StringVar(&flags.blocking, "blocking", "", "blocking mode: subset, pairwise or anywhere")
	pf.StringVar(&flags.cache, "cache", "", "model cache mode: off, singleton or set")
	pf.IntVar(&flags.workers, "workers", 0, "worker pool size for classify (0 = runtime.NumCPU)")
	pf.StringVar(&flags.timeout, "timeout", "", "per-query timeout, e.g. 30s")
	pf.StringVar(&flags.logLevel, "log-level", "info", "logrus level: debug, info, warn, error")

	cmd.AddCommand(loadCmd(), classifyCmd(), satCmd(), subCmd(), queryCmd())
	return cmd
}

func applyLogLevel() {
	lvl, err := logrus.ParseLevel(flags.logLevel)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	logrus.SetLevel(lvl)
}

// mustOntologyPath validates the shared --ontology/-f flag is set,
// since every subcommand except none of them can proceed without it.
func mustOntologyPath() error {
	if flags.ontologyPath == "" {
		return fmt.Errorf("--ontology/-f is required")
	}
	return nil
}

// loadEverything reads the config and ontology files named by the
// global flags, overrides the config with any blocking/cache/workers/
// timeout flags explicitly set, and asserts the ontology into a fresh
// session.
func loadEverything() (*loadedOntology, error) {
	if err := mustOntologyPath(); err != nil {
		return nil, err
	}
	cfg, err := loadReasonerConfigFile(flags.configPath)
	if err != nil {
		return nil, err
	}
	if flags.blocking != "" {
		cfg.Blocking = flags.blocking
	}
	if flags.cache != "" {
		cfg.Cache = flags.cache
	}
	if flags.workers != 0 {
		cfg.Workers = flags.workers
	}
	if flags.timeout != "" {
		d, err := time.ParseDuration(flags.timeout)
		if err != nil {
			return nil, fmt.Errorf("invalid --timeout: %w", err)
		}
		cfg.Timeout = d
	}
	doc, err := loadOntologyFile(flags.ontologyPath)
	if err != nil {
		return nil, err
	}
	return buildSession(doc, cfg)
}

func fail(err error) {
	fmt.Fprintln(os.Stderr, "dlreasoner:", err)
	os.Exit(1)
}
