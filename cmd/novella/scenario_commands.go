package main

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"novella/internal/asset"
	"novella/internal/scenario"
)

func newValidateCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "validate [PATH|URL]",
		Short: "Check a scenario document for problems",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sc, location, err := ctx.readScenario(cmd.Context(), firstArg(args))
			if err != nil {
				return fmt.Errorf("read %s: %w", location, err)
			}
			issues := sc.Validate()

			if jsonOutput {
				type issueJSON struct {
					Severity string `json:"severity"`
					Scene    string `json:"scene,omitempty"`
					Index    *int   `json:"index,omitempty"`
					Choice   *int   `json:"choice,omitempty"`
					Message  string `json:"message"`
				}
				items := make([]issueJSON, 0, len(issues))
				for _, issue := range issues {
					item := issueJSON{Severity: string(issue.Severity), Scene: issue.Scene, Message: issue.Message}
					if issue.Index >= 0 {
						idx := issue.Index
						item.Index = &idx
					}
					if issue.Choice >= 0 {
						choice := issue.Choice
						item.Choice = &choice
					}
					items = append(items, item)
				}
				if err := writeJSON(cmd, map[string]any{"location": location, "issues": items}); err != nil {
					return err
				}
			} else {
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Scenario: %s\n", location)
				if len(issues) > 0 {
					rows := make([][]string, 0, len(issues))
					for _, issue := range issues {
						rows = append(rows, []string{string(issue.Severity), issueWhere(issue), issue.Message})
					}
					fmt.Fprintln(out, renderTable([]string{"Severity", "Where", "Message"}, rows))
				}
				kind, summary := summarizeIssues(issues)
				fmt.Fprintln(out, renderStatusLine("Validation", kind, summary, shouldColorize(out)))
			}

			if scenario.HasErrors(issues) {
				return errors.New("scenario has errors")
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func newScenesCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "scenes [PATH|URL]",
		Short: "List the scenes of a scenario and where they lead",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sc, location, err := ctx.readScenario(cmd.Context(), firstArg(args))
			if err != nil {
				return fmt.Errorf("read %s: %w", location, err)
			}
			out := cmd.OutOrStdout()
			title := sc.Meta.Title
			if title == "" {
				title = "(untitled)"
			}
			fmt.Fprintf(out, "%s: %d scene(s), %d slot(s)\n", title, len(sc.Scenes), sc.SlotCount())

			start := sc.StartScene()
			rows := make([][]string, 0, len(sc.Scenes))
			for _, id := range sc.SceneIDs() {
				name := id
				if id == start {
					name += " *"
				}
				lines := sc.Scenes[id]
				var text, choices int
				for _, line := range lines {
					if line.Skip {
						continue
					}
					if line.HasText() {
						text++
					}
					if line.HasChoices() {
						choices++
					}
				}
				rows = append(rows, []string{
					name,
					strconv.Itoa(len(lines)),
					strconv.Itoa(text),
					strconv.Itoa(choices),
					strings.Join(sceneExits(id, lines), ", "),
				})
			}
			fmt.Fprintln(out, renderTable([]string{"Scene", "Lines", "Text", "Choices", "Exits"}, rows, 1, 2, 3))
			return nil
		},
	}
}

// sceneExits lists every scene a scene can jump to, plus "end" when a line
// or choice ends the story explicitly.
func sceneExits(id string, lines []scenario.Line) []string {
	set := make(map[string]struct{})
	note := func(t scenario.Target) {
		switch t.Kind {
		case scenario.TargetScene:
			if t.Scene != id {
				set[t.Scene] = struct{}{}
			}
		case scenario.TargetEnd:
			set["end"] = struct{}{}
		}
	}
	for _, line := range lines {
		note(line.Next)
		for _, choice := range line.Choices {
			note(choice.Next)
		}
	}
	exits := make([]string, 0, len(set))
	for target := range set {
		exits = append(exits, target)
	}
	sort.Strings(exits)
	return exits
}

func newResolveCommand(ctx *commandContext) *cobra.Command {
	var scenarioFlag string
	var charFlag string

	cmd := &cobra.Command{
		Use:   "resolve KEY",
		Short: "Resolve an asset key to its URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := ctx.loadScenario(cmd.Context(), scenarioFlag)
			if err != nil {
				return err
			}
			resolver := asset.New(scenario.NewStore(res.Scenario), ctx.logger())
			key := strings.TrimSpace(args[0])
			url, ok := resolver.ResolveFor(strings.TrimSpace(charFlag), key)
			if !ok {
				return fmt.Errorf("asset key %q did not resolve in %s", key, res.Origin)
			}
			fmt.Fprintln(cmd.OutOrStdout(), url)
			return nil
		},
	}
	cmd.Flags().StringVarP(&scenarioFlag, "scenario", "s", "", "Scenario file or URL (defaults to the configured location)")
	cmd.Flags().StringVar(&charFlag, "char", "", "Character id to resolve the key for")
	return cmd
}

func issueWhere(issue scenario.Issue) string {
	switch {
	case issue.Scene == "":
		return "-"
	case issue.Index < 0:
		return issue.Scene
	case issue.Choice >= 0:
		return fmt.Sprintf("%s[%d] choice %d", issue.Scene, issue.Index, issue.Choice)
	default:
		return fmt.Sprintf("%s[%d]", issue.Scene, issue.Index)
	}
}

func firstArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}
