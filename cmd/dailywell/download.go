package main

import (
	"fmt"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/dailywell-ai/dailywell/internal/download"
)

func downloadCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "download",
		Short: "Install the on-device model",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer app.close()

			app.download.Start(cmd.Context())
			app.download.Begin(cmd.Context())

			var bar *progressbar.ProgressBar
			ticker := time.NewTicker(500 * time.Millisecond)
			defer ticker.Stop()

			for {
				select {
				case <-cmd.Context().Done():
					return nil
				case path := <-app.download.Ready():
					if bar != nil {
						_ = bar.Finish()
						fmt.Println()
					}
					fmt.Printf("Model installed at %s\n", path)
					return nil
				case <-ticker.C:
				}

				switch s := app.download.State().(type) {
				case download.Downloading:
					if bar == nil {
						bar = progressbar.DefaultBytes(s.TotalBytes, "installing model")
					}
					_ = bar.Set64(s.BytesDone)
				case download.Failed, download.NeedsStorage, download.WaitingForWiFi:
					fmt.Println(s.UserMessage())
					return nil
				}
			}
		},
	}
	return cmd
}
