// Command streamformd is a small HTTP server demonstrating the
// streamform package: it accepts multipart/form-data uploads and writes
// the part named by the serve command's --field flag straight to disk as
// its bytes arrive, never buffering a whole upload in memory.
//
// Grounded on flashmob-go-guerrilla/cmd/guerrillad's root.go/serve.go/
// version.go split between a persistent root command, a serve
// subcommand and a version subcommand, and its verbose flag wired to
// logrus's level.
package main

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "streamformd",
	Short: "streaming multipart/form-data upload server",
	Long: `streamformd accepts HTTP uploads encoded as multipart/form-data and
streams each part straight to its destination target as bytes arrive,
holding only a small constant amount of memory regardless of upload size.`,
}

var verbose bool

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false,
		"print out more debug information")
	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		if verbose {
			logrus.SetLevel(logrus.DebugLevel)
		} else {
			logrus.SetLevel(logrus.InfoLevel)
		}
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		logrus.WithError(err).Fatal("streamformd")
	}
}
