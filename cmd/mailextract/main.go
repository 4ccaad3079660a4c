// Package main implements mailextract, an offline CLI that runs the purchase
// email extraction pipeline over .eml and .json files.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"purchase_worker/pkg/logger"
)

var (
	// pretty indents JSON output
	pretty bool
	// verbose enables debug logging on stderr
	verbose bool
	// version information
	version = "dev"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "mailextract",
	Short: "Extract purchase data from vendor emails",
	Long: `mailextract runs the vendor email extraction pipeline over local files.

Files ending in .json are read as {"from","to","subject","text","html"} objects;
anything else is parsed as an RFC 5322 message.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: false,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		_ = godotenv.Load()

		level := logger.LevelWarn
		if verbose {
			level = logger.LevelDebug
		}
		logger.Init(logger.Config{Level: level, Output: os.Stderr, Service: "mailextract", Pretty: true})
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&pretty, "pretty", false, "indent JSON output")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging on stderr")
	rootCmd.AddCommand(parseCmd)
	rootCmd.AddCommand(unwrapCmd)
}
