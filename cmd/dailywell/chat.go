package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/dailywell-ai/dailywell/internal/classifier"
)

func chatCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Talk to the coach",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer app.close()

			app.download.Start(cmd.Context())

			sessionID := uuid.NewString()
			fmt.Println("DailyWell coach. Type 'quit' to exit.")

			scanner := bufio.NewScanner(os.Stdin)
			for {
				fmt.Print("> ")
				if !scanner.Scan() {
					return scanner.Err()
				}
				text := strings.TrimSpace(scanner.Text())
				if text == "" {
					continue
				}
				if text == "quit" || text == "exit" {
					return nil
				}

				reply, err := app.coach.SendMessage(cmd.Context(), sessionID, text, classifier.SessionChat)
				if err != nil {
					return err
				}

				fmt.Printf("\n%s\n", reply.Text)
				if reply.Notice != "" {
					fmt.Printf("  (%s)\n", reply.Notice)
				}
				fmt.Printf("  [%s, %dms]\n\n", reply.Tier, reply.DurationMs)
			}
		},
	}
	return cmd
}
