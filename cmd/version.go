package cmd

import (
	"fmt"
	"runtime/debug"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Actual version can be specified in build command.
var version = "unknown"

type versionInfo struct {
	App       string `json:"app"`
	Version   string `json:"version"`
	GoVersion string `json:"go_version,omitempty"`
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	RunE: func(cmd *cobra.Command, _ []string) error {
		info := versionInfo{App: app, Version: version}
		if build, ok := debug.ReadBuildInfo(); ok {
			info.GoVersion = build.GoVersion
		}

		if viper.GetString("output") == outputText {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "%s version: %s\n", info.App, info.Version)
			return err
		}
		return writeJSON(cmd.OutOrStdout(), info)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
