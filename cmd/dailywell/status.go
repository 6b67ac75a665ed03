package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dailywell-ai/dailywell/internal/model"
)

func statusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show model and routing status",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer app.close()

			fmt.Println("Models:")
			for _, tier := range []model.Tier{model.TierLocal, model.TierLite, model.TierStandard, model.TierMax} {
				m, ok := app.models[tier]
				if !ok {
					continue
				}
				st := m.Status()
				avail := "ready"
				if !st.Available {
					avail = "unavailable"
				}
				fmt.Printf("  %-8s  %-32s  %s\n", tier, st.Name, avail)
				if st.Error != "" {
					fmt.Printf("            %s\n", st.Error)
				}
			}

			fmt.Printf("\nOn-device model: %s\n", app.download.State().UserMessage())

			fmt.Println("\nCircuit breakers:")
			states := app.router.BreakerStates()
			for _, tier := range model.CloudTiers() {
				fmt.Printf("  %-8s  %s\n", tier, states[tier])
			}

			return nil
		},
	}
	return cmd
}
