package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"novella/internal/affection"
	"novella/internal/playback"
	"novella/internal/presentation"
	"novella/internal/saves"
	"novella/internal/scenario"
)

const playHelp = "Enter advances, 1-4 chooses, s saves, l loads, r restarts, q quits."

func newPlayCommand(ctx *commandContext) *cobra.Command {
	var scenarioFlag string
	var continueFlag bool
	var slotFlag string

	cmd := &cobra.Command{
		Use:   "play",
		Short: "Play a scenario in the terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlay(cmd, ctx, playOptions{
				scenario: scenarioFlag,
				resume:   continueFlag,
				slot:     slotFlag,
			})
		},
	}
	cmd.Flags().StringVarP(&scenarioFlag, "scenario", "s", "", "Scenario file or URL (defaults to the configured location)")
	cmd.Flags().BoolVar(&continueFlag, "continue", false, "Resume from the save slot instead of starting over")
	cmd.Flags().StringVar(&slotFlag, "slot", "", "Save slot to use (defaults to playback.save_slot)")
	return cmd
}

type playOptions struct {
	scenario string
	resume   bool
	slot     string
}

func runPlay(cmd *cobra.Command, ctx *commandContext, opts playOptions) error {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}

	lock := flock.New(cfg.PlayLockPath())
	locked, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire play lock: %w", err)
	}
	if !locked {
		return fmt.Errorf("another play session is running (lock: %s)", cfg.PlayLockPath())
	}
	defer func() { _ = lock.Unlock() }()

	runCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger := ctx.logger()
	backend, err := ctx.openSaves()
	if err != nil {
		return err
	}
	defer func() { _ = backend.Close() }()

	res, err := ctx.loadScenario(runCtx, opts.scenario)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	colorize := shouldColorize(out)
	if res.Fallback {
		fmt.Fprintln(out, renderStatusLine("Scenario", statusWarn, "using the bundled story ("+res.Origin+")", colorize))
	}

	options := playback.OptionsFromConfig(cfg, backend)
	if slot := strings.TrimSpace(opts.slot); slot != "" {
		cleaned, err := saves.CleanSlot(slot)
		if err != nil {
			return err
		}
		options.SaveSlot = cleaned
	}

	session := playback.New(scenario.NewStore(res.Scenario), affection.NewLedger(), presentation.Select(out), logger, options)

	fmt.Fprintln(out, res.Scenario.Meta.Title)
	fmt.Fprintln(out, playHelp)
	if opts.resume {
		if err := session.Load(runCtx, ""); err != nil {
			fmt.Fprintln(out, renderStatusLine("Continue", statusWarn, err.Error()+"; starting over", colorize))
			if err := session.Start(runCtx); err != nil {
				return err
			}
		}
	} else if err := session.Start(runCtx); err != nil {
		return err
	}

	return drivePlay(runCtx, session, cmd.InOrStdin(), out)
}

// drivePlay is the single goroutine that touches the session: presentation
// completions and player input are both funneled through its select.
func drivePlay(ctx context.Context, session *playback.Session, in io.Reader, out io.Writer) error {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-session.Pending():
			session.PresentationDone(ctx)
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			if quit := handlePlayInput(ctx, session, strings.TrimSpace(line), out); quit {
				return nil
			}
		}
	}
}

func handlePlayInput(ctx context.Context, session *playback.Session, input string, out io.Writer) bool {
	switch strings.ToLower(input) {
	case "":
		if !session.Tap(ctx) && session.State() == playback.AwaitingChoice {
			fmt.Fprintf(out, "Pick a choice between 1 and %d.\n", len(session.Choices()))
		}
	case "q", "quit":
		return true
	case "s", "save":
		if err := session.Save(ctx, ""); err != nil {
			fmt.Fprintln(out, err)
		}
	case "l", "load":
		if err := session.Load(ctx, ""); err != nil {
			fmt.Fprintln(out, err)
		}
	case "r", "restart":
		if err := session.Restart(ctx); err != nil {
			fmt.Fprintln(out, err)
		}
	case "?", "h", "help":
		fmt.Fprintln(out, playHelp)
	default:
		n, err := strconv.Atoi(input)
		if err != nil {
			fmt.Fprintf(out, "Unknown input %q. %s\n", input, playHelp)
			return false
		}
		if err := session.Choose(ctx, n-1); err != nil {
			switch {
			case errors.Is(err, playback.ErrNotAwaitingChoice):
				fmt.Fprintln(out, "There is nothing to choose right now.")
			case errors.Is(err, playback.ErrInvalidChoice):
				fmt.Fprintf(out, "Pick a choice between 1 and %d.\n", len(session.Choices()))
			default:
				fmt.Fprintln(out, err)
			}
		}
	}
	return false
}
