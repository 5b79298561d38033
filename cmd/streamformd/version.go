package main

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// version is stamped at build time the way guerrilla.Version is (via
// -ldflags); "dev" is the fallback for a plain go build.
var version = "dev"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version info",
	Run: func(cmd *cobra.Command, args []string) {
		logrus.WithField("version", version).Info("streamformd")
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
