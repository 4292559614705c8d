package cmd

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"showplane/internal/raffle"
	"showplane/pkg/api"
)

var verifyCmd = &cobra.Command{
	Use:   "verify [publication_file]",
	Short: "Verify a published raffle outcome",
	Long: `Recompute a published raffle from its seed and entrant list and check
that the published selected set matches, order included.

The publication file is the JSON record written by "showctl raffle
--publish" (or published by the platform alongside an executed raffle).
Verification needs nothing else: the seed and the documented formula
fully determine the draw.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		data, err := os.ReadFile(args[0])
		if err != nil {
			cmd.Printf("Failed to read publication: %v\n", err)
			return
		}

		var pub api.RafflePublication
		if err := json.Unmarshal(data, &pub); err != nil {
			cmd.Printf("Invalid publication file: %v\n", err)
			return
		}

		entrants := make([]raffle.Entrant, len(pub.Entrants))
		for i, e := range pub.Entrants {
			entrants[i] = raffle.Entrant{ID: e.ID, Name: e.Name}
		}
		expected := make([]string, len(pub.Selected))
		for i, o := range pub.Selected {
			expected[i] = o.ID
		}

		ok, err := raffle.Verify(entrants, pub.Seed, pub.Capacity, expected)
		if err != nil {
			cmd.Printf("Verification failed: %v\n", err)
			return
		}

		auditOK := verifyAudit(cmd, pub)

		if ok && auditOK {
			cmd.Printf("%s✓%s Outcome verified: seed %s reproduces the published selection\n",
				colorGreen, colorReset, pub.Seed)
			return
		}

		if !ok {
			cmd.Printf("%s✗%s Outcome MISMATCH: seed %s does not reproduce the published selection\n",
				colorRed, colorReset, pub.Seed)
			printRecomputed(cmd, entrants, pub)
		}
	},
}

// verifyAudit recomputes each published audit number. Numbers are
// exact: the same seed and index always yield the same float64.
func verifyAudit(cmd *cobra.Command, pub api.RafflePublication) bool {
	ok := true
	for _, a := range pub.Audit {
		if got := raffle.Number(pub.Seed, a.Index); got != a.Number {
			cmd.Printf("%s✗%s Audit entry %s at index %d: published %.9f, recomputed %.9f\n",
				colorRed, colorReset, a.ID, a.Index, a.Number, got)
			ok = false
		}
	}
	return ok
}

func printRecomputed(cmd *cobra.Command, entrants []raffle.Entrant, pub api.RafflePublication) {
	result, err := raffle.Perform(entrants, pub.Capacity, pub.Seed)
	if err != nil {
		return
	}
	cmd.Println("\nRecomputed selection:")
	for _, o := range result.Selected {
		cmd.Printf("  %d. %s %s(%.9f)%s\n", o.Position, o.ID, colorDim, o.Number, colorReset)
	}
	cmd.Println("Published selection:")
	for _, o := range pub.Selected {
		cmd.Printf("  %d. %s %s(%.9f)%s\n", o.Position, o.ID, colorDim, o.Number, colorReset)
	}
}

func init() {
	rootCmd.AddCommand(verifyCmd)
}
