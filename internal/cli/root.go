package cli

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "pkgrelay",
		Short: "Serve a dynamic package repository over GitHub releases",
		Long: `pkgrelay fronts a project's GitHub releases with apt and yum/zypper
repository endpoints, generating and signing the index metadata on demand
instead of maintaining a static repository tree on disk.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			verbose, _ := cmd.Flags().GetBool("verbose")
			if verbose {
				logrus.SetLevel(logrus.DebugLevel)
			} else if os.Getenv("PKGRELAY_LOG_LEVEL") == "" {
				logrus.SetLevel(logrus.InfoLevel)
			}
		},
	}

	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")

	rootCmd.AddCommand(NewServeCmd())

	return rootCmd
}
