package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// newRootCmd builds bbctl's command tree from scratch. Building it fresh
// per call (rather than registering subcommands onto a package-level
// singleton via init()) keeps every flag's backing pflag.FlagSet private to
// one invocation, which matters for repeatable flags like commit's
// --attach: pflag's slice-typed Value accumulates across Parse calls on a
// shared FlagSet, so a long-lived command tree would leak one invocation's
// flags into the next.
func newRootCmd() *cobra.Command {
	var cfgFile string
	var rootFlag string

	root := &cobra.Command{
		Use:   "bbctl",
		Short: "bundlebase command-line client",
		Long: `bbctl attaches data sources to a bundle, records filter/project/join
operations against it, commits new versions, builds column indexes, and
inspects a bundle's history and compiled query plan.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig(cfgFile)
		},
	}

	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.bbctl.yaml, ./.bbctl.yaml)")
	root.PersistentFlags().StringVar(&rootFlag, "root", "", "bundle root URL (path, file://, or s3://bucket/prefix)")
	viper.BindPFlag("root", root.PersistentFlags().Lookup("root"))

	root.AddCommand(
		newCreateCmd(),
		newAttachCmd(),
		newFilterCmd(),
		newCommitCmd(),
		newHistoryCmd(),
		newExplainCmd(),
		newIndexCmd(),
		newViewCmd(),
	)
	return root
}

// initConfig wires viper's file/env layering: an explicit --config file if
// given, otherwise a ".bbctl" file found in $HOME or the working directory,
// with BUNDLEBASE_-prefixed environment variables always taking precedence
// over either.
func initConfig(cfgFile string) error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(home)
		}
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".bbctl")
	}

	viper.SetEnvPrefix("BUNDLEBASE")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "bbctl: using config file", viper.ConfigFileUsed())
	}
	return nil
}

// requireRoot resolves the --root flag, falling back to viper's "root" key
// (set by a config file or BUNDLEBASE_ROOT) when the flag is unset.
func requireRoot(cmd *cobra.Command) (string, error) {
	root, _ := cmd.Root().PersistentFlags().GetString("root")
	if root == "" {
		root = viper.GetString("root")
	}
	if root == "" {
		return "", fmt.Errorf("%s: --root is required (or set BUNDLEBASE_ROOT / a config file's root key)", cmd.Name())
	}
	return root, nil
}
