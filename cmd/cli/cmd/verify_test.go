package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"showplane/internal/raffle"
	"showplane/pkg/api"
)

func buildPublication(t *testing.T, capacity int, seed string) api.RafflePublication {
	t.Helper()
	entrants := []raffle.Entrant{
		{ID: "a1", Name: "Juggling act"},
		{ID: "b2", Name: "Stand-up set"},
		{ID: "c3", Name: "Card tricks"},
		{ID: "d4", Name: "Acoustic cover"},
		{ID: "e5", Name: "Beatbox"},
	}
	result, err := raffle.Perform(entrants, capacity, seed)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return publication(entrants, capacity, result)
}

func writePublicationFile(t *testing.T, pub api.RafflePublication) string {
	t.Helper()
	data, err := json.Marshal(pub)
	if err != nil {
		t.Fatalf("failed to marshal publication: %v", err)
	}
	path := filepath.Join(t.TempDir(), "outcome.json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("failed to write publication: %v", err)
	}
	return path
}

func TestVerifyCommand_AcceptsUntamperedRecord(t *testing.T) {
	resetViper()

	pub := buildPublication(t, 2, "TESTSEED")
	path := writePublicationFile(t, pub)

	var stdout bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stdout)
	rootCmd.SetArgs([]string{"verify", path})

	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.Contains(stdout.String(), "Outcome verified") {
		t.Errorf("expected verification success, got: %s", stdout.String())
	}
}

func TestVerifyCommand_RejectsSwappedSelection(t *testing.T) {
	resetViper()

	pub := buildPublication(t, 2, "TESTSEED")
	// Swap the published selected entries; same members, wrong order.
	pub.Selected[0], pub.Selected[1] = pub.Selected[1], pub.Selected[0]
	path := writePublicationFile(t, pub)

	var stdout bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stdout)
	rootCmd.SetArgs([]string{"verify", path})

	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	output := stdout.String()
	if !strings.Contains(output, "MISMATCH") {
		t.Errorf("expected mismatch report, got: %s", output)
	}
	if !strings.Contains(output, "Recomputed selection") {
		t.Errorf("expected recomputed listing, got: %s", output)
	}
}

func TestVerifyCommand_RejectsWrongSeed(t *testing.T) {
	resetViper()

	pub := buildPublication(t, 2, "TESTSEED")
	pub.Seed = "FORGEDSEED"
	path := writePublicationFile(t, pub)

	var stdout bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stdout)
	rootCmd.SetArgs([]string{"verify", path})

	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Either the selection or the audit trail must betray the forged
	// seed; with overwhelming probability both do.
	output := stdout.String()
	if strings.Contains(output, "Outcome verified") {
		t.Errorf("forged seed accepted: %s", output)
	}
}

func TestVerifyCommand_ReportsCorruptedAudit(t *testing.T) {
	resetViper()

	pub := buildPublication(t, 2, "TESTSEED")
	pub.Audit[0].Number = 0.123456789
	path := writePublicationFile(t, pub)

	var stdout bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stdout)
	rootCmd.SetArgs([]string{"verify", path})

	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.Contains(stdout.String(), "Audit entry") {
		t.Errorf("expected audit discrepancy report, got: %s", stdout.String())
	}
}

func TestVerifyCommand_MissingFile(t *testing.T) {
	resetViper()

	var stdout bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stdout)
	rootCmd.SetArgs([]string{"verify", "/nonexistent/outcome.json"})

	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.Contains(stdout.String(), "Failed to read publication") {
		t.Errorf("expected read error, got: %s", stdout.String())
	}
}

func TestVerifyCommand_RequiresFileArgument(t *testing.T) {
	resetViper()

	var stderr bytes.Buffer
	rootCmd.SetOut(&stderr)
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs([]string{"verify"})

	if err := rootCmd.Execute(); err == nil {
		t.Error("expected error when no publication file provided")
	}
}
