// dailywell is the CLI surface for the DailyWell AI core: a chat REPL over
// the coach, model installation, and wallet/routing status.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
)

var (
	cfgFile string
	rootCmd = &cobra.Command{
		Use:   "dailywell",
		Short: "DailyWell AI coach core",
		Long: `dailywell runs the AI core behind the DailyWell coach: the on-device
model, the cloud tier router and the usage wallet.`,
	}
)

func init() {
	home, _ := os.UserHomeDir()
	defaultCfg := filepath.Join(home, ".dailywell", "config.toml")

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", defaultCfg, "config file")
	rootCmd.PersistentFlags().String("user", "local", "user ID")
	rootCmd.PersistentFlags().String("plan", "premium", "plan tier (free, trial, premium, family)")

	rootCmd.AddCommand(chatCmd())
	rootCmd.AddCommand(downloadCmd())
	rootCmd.AddCommand(statusCmd())
	rootCmd.AddCommand(usageCmd())
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		cancel()
	}()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
