package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dshills/luadap/internal/debug"
	"github.com/dshills/luadap/internal/terminal"
)

func newDAPCmd(c *cli) *cobra.Command {
	var (
		listen string
		tty    string
	)

	cmd := &cobra.Command{
		Use:   "dap",
		Short: "Serve the Debug Adapter Protocol",
		Long: `Serve the Debug Adapter Protocol over stdio, or over TCP with --listen.

Program output is sent to the client as output events unless --tty names a
terminal device to render it on instead.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := debug.Options{
				Logger: c.logger,
				Config: c.cfg,
			}
			if tty != "" {
				opts.NewSurface = func(func(string)) (terminal.Surface, error) {
					surface, err := terminal.OpenTTY(tty)
					if err != nil {
						return nil, err
					}
					return surface, nil
				}
			}
			srv := debug.NewServer(opts)

			if listen != "" {
				return srv.ListenAndServe(cmd.Context(), listen)
			}
			c.logger.Debug("serving stdio", zap.String("version", version))
			return srv.ServeStdio(cmd.Context())
		},
	}

	cmd.Flags().StringVarP(&listen, "listen", "l", "", "listen for clients on this TCP address")
	cmd.Flags().StringVar(&tty, "tty", "", "render program terminals on this tty device")
	return cmd
}
