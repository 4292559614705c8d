package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"showplane/internal/raffle"
	"showplane/pkg/api"
)

var raffleCmd = &cobra.Command{
	Use:   "raffle",
	Short: "Run a raffle from an entrants file",
	Long: `Run the deterministic raffle over an entrants file and print the outcome.

The entrants file is a JSON array in submission order:
  [{"id": "a1", "name": "Juggling act"}, {"id": "b2", "name": "Stand-up set"}]

Without --seed a fresh seed is generated, so this is a dry run. With a
fixed --seed the run is reproducible. Use --publish to write the full
verifiable record, including the per-entrant audit trail, to a file.`,
	Run: func(cmd *cobra.Command, args []string) {
		entrantsPath, _ := cmd.Flags().GetString("entrants")
		capacity, _ := cmd.Flags().GetInt("capacity")
		seed, _ := cmd.Flags().GetString("seed")
		publishPath, _ := cmd.Flags().GetString("publish")

		entrants, err := readEntrants(entrantsPath)
		if err != nil {
			cmd.Printf("Failed to read entrants: %v\n", err)
			return
		}

		result, err := raffle.Perform(entrants, capacity, seed)
		if err != nil {
			cmd.Printf("Raffle failed: %v\n", err)
			return
		}

		printRaffle(cmd, result)

		if publishPath != "" {
			pub := publication(entrants, capacity, result)
			data, err := json.MarshalIndent(pub, "", "  ")
			if err != nil {
				cmd.Printf("Failed to encode publication: %v\n", err)
				return
			}
			if err := os.WriteFile(publishPath, append(data, '\n'), 0o644); err != nil {
				cmd.Printf("Failed to write publication: %v\n", err)
				return
			}
			cmd.Printf("\nPublished verifiable record to %s\n", publishPath)
		}
	},
}

func readEntrants(path string) ([]raffle.Entrant, error) {
	if path == "" {
		return nil, fmt.Errorf("--entrants is required")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var raw []api.RaffleEntrant
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("invalid entrants file: %w", err)
	}
	entrants := make([]raffle.Entrant, len(raw))
	for i, e := range raw {
		entrants[i] = raffle.Entrant{ID: e.ID, Name: e.Name}
	}
	return entrants, nil
}

func printRaffle(cmd *cobra.Command, result *raffle.Result) {
	cmd.Printf("%sRaffle outcome%s\n", colorBold, colorReset)
	cmd.Println("──────────────────────────────")
	cmd.Printf("%sSeed:%s       %s\n", colorDim, colorReset, result.Seed)
	cmd.Printf("%sExecuted:%s   %s\n", colorDim, colorReset, result.ExecutedAt.Format("Mon, 02 Jan 2006 15:04:05 MST"))
	cmd.Printf("%sSelected:%s   %s%d%s\n", colorDim, colorReset, colorGreen, len(result.Selected), colorReset)
	cmd.Printf("%sWaitlisted:%s %s%d%s\n\n", colorDim, colorReset, colorYellow, len(result.Waitlist), colorReset)

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "POS\tID\tNAME\tNUMBER")
	for _, o := range result.Selected {
		fmt.Fprintf(w, "%d\t%s\t%s\t%.9f\n", o.Position, o.ID, o.Name, o.Number)
	}
	w.Flush()

	if len(result.Waitlist) > 0 {
		cmd.Printf("\n%sWaitlist%s\n", colorBold, colorReset)
		w = tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "POS\tID\tNAME\tNUMBER")
		for _, o := range result.Waitlist {
			fmt.Fprintf(w, "%d\t%s\t%s\t%.9f\n", o.Position, o.ID, o.Name, o.Number)
		}
		w.Flush()
	}
}

func publication(entrants []raffle.Entrant, capacity int, result *raffle.Result) api.RafflePublication {
	pub := api.RafflePublication{
		Seed:       result.Seed,
		Capacity:   capacity,
		ExecutedAt: result.ExecutedAt,
	}
	for _, e := range entrants {
		pub.Entrants = append(pub.Entrants, api.RaffleEntrant{ID: e.ID, Name: e.Name})
	}
	for _, o := range result.Selected {
		pub.Selected = append(pub.Selected, api.RaffleOutcome{ID: o.ID, Name: o.Name, Position: o.Position, Number: o.Number})
	}
	for _, o := range result.Waitlist {
		pub.Waitlist = append(pub.Waitlist, api.RaffleOutcome{ID: o.ID, Name: o.Name, Position: o.Position, Number: o.Number})
	}
	for _, a := range result.Audit {
		pub.Audit = append(pub.Audit, api.RaffleAuditEntry{ID: a.ID, Index: a.Index, Number: a.Number})
	}
	return pub
}

// ANSI color codes
const (
	colorReset  = "\033[0m"
	colorBold   = "\033[1m"
	colorDim    = "\033[2m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
)

func init() {
	raffleCmd.Flags().String("entrants", "", "Path to the entrants JSON file (required)")
	raffleCmd.Flags().Int("capacity", 0, "Number of performance spots (required)")
	raffleCmd.Flags().String("seed", "", "Fixed seed; omit to draw with a fresh one")
	raffleCmd.Flags().String("publish", "", "Write the verifiable record to this path")
	raffleCmd.MarkFlagRequired("entrants")
	raffleCmd.MarkFlagRequired("capacity")

	rootCmd.AddCommand(raffleCmd)
}
