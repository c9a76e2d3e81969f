package main

import (
	"context"
	"fmt"
	"io"
	"maps"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dshills/luadap/internal/debug"
	"github.com/dshills/luadap/internal/interp"
	"github.com/dshills/luadap/internal/terminal"
	"github.com/dshills/luadap/internal/watch"
)

func newRunCmd(c *cli) *cobra.Command {
	var (
		env       map[string]string
		watchFile bool
		prompt    bool
	)

	cmd := &cobra.Command{
		Use:   "run <program> [args...]",
		Short: "Run a Lua program in this terminal",
		Long: `Run a Lua program without a debugger, rendering its terminal on stdin
and stdout. Arguments after the program are passed to it as arg[1..n].`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			la := debug.LaunchArguments{
				Program: args[0],
				NoDebug: true,
				Env:     env,
				Watch:   watchFile,
			}
			if !prompt {
				la.HasArgs = true
				la.Args = args[1:]
			}
			return c.runProgram(cmd.Context(), la, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
	cmd.Flags().SetInterspersed(false)
	cmd.Flags().StringToStringVarP(&env, "env", "e", nil, "extra environment entries for the program")
	cmd.Flags().BoolVarP(&watchFile, "watch", "w", false, "rerun the program when a Lua file next to it changes")
	cmd.Flags().BoolVar(&prompt, "prompt", false, "ask for the program arguments before running")
	return cmd
}

// runProgram runs la on a terminal over in and out until it ends or, when
// watching, until ctx is done.
func (c *cli) runProgram(ctx context.Context, la debug.LaunchArguments, in io.Reader, out io.Writer) error {
	// Round trip through the launch document so the CLI resolves arguments
	// exactly as a launch request does.
	doc, err := la.JSON()
	if err != nil {
		return err
	}
	c.logger.Debug("launch", zap.ByteString("arguments", doc))
	if la, err = debug.ParseLaunchArguments(doc); err != nil {
		return err
	}
	if abs, err := filepath.Abs(la.Program); err == nil {
		la.Program = abs
	}

	surface, err := terminal.NewStreamSurface(in, out)
	if err != nil {
		return err
	}
	term := terminal.New(surface, terminal.Options{
		Name:         c.cfg.Terminal.Name,
		PasswordMask: c.cfg.Terminal.PasswordMask,
	})
	defer term.Dispose()

	environment := maps.Clone(c.cfg.Interpreter.Environment)
	if environment == nil {
		environment = make(map[string]string)
	}
	maps.Copy(environment, la.Env)

	engine := interp.New(interp.Options{
		Environment:    environment,
		Seed:           c.cfg.Interpreter.Seed,
		StatementLimit: c.cfg.Interpreter.StatementLimit,
		CallStackSize:  c.cfg.Interpreter.CallStackSize,
		Logger:         c.logger,
	})
	engine.SetTarget(la.Program)
	engine.SetDebugger(debug.PassThrough{})
	if la.HasArgs {
		engine.SetParams(la.Args)
	}
	surface.OnInterrupt(func() {
		_ = engine.Exit()
	})

	changed := make(chan struct{}, 1)
	if la.Watch || c.cfg.Launch.RestartOnChange {
		w, err := watch.New(la.Program, c.cfg.Launch.WatchDebounce(), func(path string) {
			c.logger.Info("rerunning after change", zap.String("path", path))
			select {
			case changed <- struct{}{}:
			default:
			}
			_ = engine.Exit()
		}, c.logger)
		if err != nil {
			return fmt.Errorf("watch %s: %w", la.Program, err)
		}
		defer w.Close()
	} else {
		changed = nil
	}

	var failed bool
	for first := true; ; first = false {
		output := debug.NewOutput(ctx, term, debug.OutputOptions{
			ProgressWidth:    c.cfg.Terminal.ProgressWidth,
			ProgressInterval: c.cfg.Terminal.ProgressInterval(),
		})
		engine.SetOutput(output)
		if first && !la.HasArgs {
			line := output.WaitForInput(ctx.Done(), false, debug.ArgumentPrompt)
			engine.SetParams(debug.SplitParams(line))
		}

		failed = false
		if err := engine.Run(ctx); err != nil {
			failed = true
			output.Print(0, debug.RichDiagnostic(err), true)
		}
		output.Queue().End()

		if changed == nil {
			break
		}
		select {
		case <-changed:
			continue
		case <-ctx.Done():
		}
		break
	}

	if failed {
		return errReported
	}
	return nil
}
