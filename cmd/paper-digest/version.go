// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the paper-digest build and the config file in use",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), versionString(viper.ConfigFileUsed()))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

// versionString reports the invoked binary, its version, the Go runtime and the
// config file the settings came from ("none" when running on defaults).
func versionString(cfgFile string) string {
	if cfgFile == "" {
		cfgFile = "none"
	}
	return fmt.Sprintf("%s %s (%s %s/%s)\nconfig: %s",
		filepath.Base(os.Args[0]), version, runtime.Version(), runtime.GOOS, runtime.GOARCH, cfgFile)
}
