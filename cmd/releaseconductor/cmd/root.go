package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "releaseconductor",
	Short: "Reconcile GitHub releases with Jira fix versions",
	Long: `ReleaseConductor keeps Jira in line with GitHub releases.

On a push to a release branch or a published release it:
  - Resolves the fix version from the release branch and its tags
  - Finds the Jira issues referenced by the release's commits
  - Sets the fix version and links the issues to the release master ticket
  - Publishes the issue list as release note
  - Prepares the next patch release, versions and master ticket`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.releaseconductor.yaml)")
	rootCmd.PersistentFlags().String("token", "", "GitHub token (or set GITHUB_TOKEN env var)")
	rootCmd.PersistentFlags().String("repo", "", "GitHub repository (owner/repo format, default $GITHUB_REPOSITORY)")
	rootCmd.PersistentFlags().String("tag-prefix", "v", "Tag prefix (e.g., 'v' for v1.2.3)")
	rootCmd.PersistentFlags().String("workspace", ".", "Local checkout used to find issue keys in commits")
	rootCmd.PersistentFlags().String("format", "table", "Output format: table, json, markdown, yaml, csv")
	rootCmd.PersistentFlags().String("output", "", "Write the report to this file instead of stdout")
	rootCmd.PersistentFlags().Bool("dry-run", false, "Show what would happen without making changes")
	rootCmd.PersistentFlags().Bool("verbose", false, "Enable verbose output")

	// Bind flags to viper
	_ = viper.BindPFlag("github.token", rootCmd.PersistentFlags().Lookup("token"))
	_ = viper.BindPFlag("github.repository", rootCmd.PersistentFlags().Lookup("repo"))
	_ = viper.BindPFlag("tag-prefix", rootCmd.PersistentFlags().Lookup("tag-prefix"))
	_ = viper.BindPFlag("workspace", rootCmd.PersistentFlags().Lookup("workspace"))
	_ = viper.BindPFlag("format", rootCmd.PersistentFlags().Lookup("format"))
	_ = viper.BindPFlag("output", rootCmd.PersistentFlags().Lookup("output"))
	_ = viper.BindPFlag("dry-run", rootCmd.PersistentFlags().Lookup("dry-run"))
	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))

	viper.SetDefault("branch-type", "release")
	viper.SetDefault("jira.batch-size", 100)
	viper.SetDefault("jira.link-type", "Drives")
	viper.SetDefault("miner.kind", "git")
	viper.SetDefault("http.max-retries", 3)
	viper.SetDefault("http.initial-backoff", "1s")
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag.
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory.
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		// Search config in home directory with name ".releaseconductor" (without extension).
		viper.AddConfigPath(home)
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".releaseconductor")
	}

	// Environment variables, e.g., RELEASECONDUCTOR_JIRA_BASE_URL
	viper.SetEnvPrefix("RELEASECONDUCTOR")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	viper.AutomaticEnv()

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err == nil {
		if viper.GetBool("verbose") {
			fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
		}
	}

	// Fall back to the conventional CI variables
	fallbackEnv("github.token", "GITHUB_TOKEN")
	fallbackEnv("github.repository", "GITHUB_REPOSITORY")
	fallbackEnv("jira.token", "JIRA_TOKEN")
}

func fallbackEnv(key, env string) {
	if viper.GetString(key) == "" {
		if v := os.Getenv(env); v != "" {
			viper.Set(key, v)
		}
	}
}
