package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var (
	cfgFile string
	logger  *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "mycos",
	Short: "Drive a mycos execution engine from chunk and link binaries on disk",
	Long: `mycos loads chunk and link binaries, builds the bit-level adjacency
for a mesh of chunks, and drives ticks over it. It is a convenience harness
around the mycos Go package, not a specification of a host embedding
surface.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// run, inspect, and serve each define flags under the same viper
		// keys; bind the executing command's own flags so they win.
		if err := viper.BindPFlags(cmd.Flags()); err != nil {
			return err
		}
		var err error
		logger, err = newLogger()
		return err
	},
}

func newLogger() (*zap.Logger, error) {
	if viper.GetBool("verbose") {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func main() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: none, flags/env only)")
	rootCmd.PersistentFlags().Bool("verbose", false, "enable development-mode (human-readable) logging")
	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	viper.SetEnvPrefix("MYCOS")
	viper.AutomaticEnv()

	rootCmd.AddCommand(runCmd, inspectCmd, serveCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
		// A config file is optional convenience; flags and env vars still
		// win via viper's precedence, so a missing/unreadable file here
		// isn't fatal on its own.
		_ = viper.ReadInConfig()
	}
}
