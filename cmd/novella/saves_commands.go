package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"novella/internal/saves"
)

func newSavesCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "saves",
		Short: "Inspect and manage save slots",
	}
	cmd.AddCommand(newSavesListCommand(ctx))
	cmd.AddCommand(newSavesShowCommand(ctx))
	cmd.AddCommand(newSavesDeleteCommand(ctx))
	return cmd
}

func newSavesListCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List save slots",
		RunE: func(cmd *cobra.Command, args []string) error {
			backend, err := ctx.openSaves()
			if err != nil {
				return err
			}
			defer func() { _ = backend.Close() }()

			summaries, err := backend.List(cmd.Context())
			if err != nil {
				return fmt.Errorf("list saves: %w", err)
			}

			if jsonOutput {
				type slotJSON struct {
					Slot    string `json:"slot"`
					SaveID  string `json:"save_id,omitempty"`
					Scene   string `json:"scene,omitempty"`
					Index   int    `json:"index"`
					SavedAt string `json:"saved_at,omitempty"`
					Error   string `json:"error,omitempty"`
				}
				items := make([]slotJSON, 0, len(summaries))
				for _, s := range summaries {
					item := slotJSON{Slot: s.Slot, SaveID: s.SaveID, Scene: s.Scene, Index: s.Index}
					if !s.SavedAt.IsZero() {
						item.SavedAt = s.SavedAt.UTC().Format(time.RFC3339)
					}
					if s.Err != nil {
						item.Error = s.Err.Error()
					}
					items = append(items, item)
				}
				return writeJSON(cmd, items)
			}

			out := cmd.OutOrStdout()
			if len(summaries) == 0 {
				fmt.Fprintln(out, "No saves")
				return nil
			}
			rows := make([][]string, 0, len(summaries))
			for _, s := range summaries {
				if s.Err != nil {
					rows = append(rows, []string{s.Slot, "-", "-", "corrupt: " + s.Err.Error()})
					continue
				}
				rows = append(rows, []string{s.Slot, s.Scene, strconv.Itoa(s.Index), formatSavedAt(s.SavedAt)})
			}
			fmt.Fprintln(out, renderTable([]string{"Slot", "Scene", "Index", "Saved"}, rows, 2))
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func newSavesShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show SLOT",
		Short: "Print the record stored in a slot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			slot, err := saves.CleanSlot(args[0])
			if err != nil {
				return err
			}
			backend, err := ctx.openSaves()
			if err != nil {
				return err
			}
			defer func() { _ = backend.Close() }()

			rec, err := backend.Get(cmd.Context(), slot)
			if err != nil {
				return fmt.Errorf("read slot %s: %w", slot, err)
			}
			return writeJSON(cmd, rec)
		},
	}
}

func newSavesDeleteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "delete SLOT",
		Short: "Delete a save slot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			slot, err := saves.CleanSlot(args[0])
			if err != nil {
				return err
			}
			backend, err := ctx.openSaves()
			if err != nil {
				return err
			}
			defer func() { _ = backend.Close() }()

			if err := backend.Delete(cmd.Context(), slot); err != nil {
				return fmt.Errorf("delete slot %s: %w", slot, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted slot %s\n", slot)
			return nil
		},
	}
}

func formatSavedAt(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04:05")
}
