package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/bridges/otelslog"

	"github.com/freekieb7/shale/filesystem"
	"github.com/freekieb7/shale/http"
	"github.com/freekieb7/shale/session"
	"github.com/freekieb7/shale/telemetry"
	"github.com/freekieb7/shale/validation"
)

func serveCmd() *cobra.Command {
	var (
		host      string
		port      int
		staticDir string
		stem      string
		demo      bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the event loop",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			shutdown, err := telemetry.Setup(ctx, "shale")
			if err != nil {
				return err
			}
			defer func() {
				flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := shutdown(flushCtx); err != nil {
					fmt.Fprintln(os.Stderr, "telemetry shutdown:", err)
				}
			}()

			logger := otelslog.NewLogger("shale")
			slog.SetDefault(logger)

			cfg := http.DefaultConfig()
			cfg.Logger = logger

			server, err := http.NewServer(cfg)
			if err != nil {
				return err
			}

			if demo {
				registerDemoHandlers(server)
			}
			if staticDir != "" {
				fsys := filesystem.NewLocalFilesystem()
				if err := http.MountStatic(server.Registry(), fsys, staticDir, stem); err != nil {
					return err
				}
			}

			stop := make(chan os.Signal, 1)
			signal.Notify(stop, os.Interrupt)
			go func() {
				<-stop
				logger.Info("interrupt, stopping")
				server.Stop()
			}()

			return server.ListenAndServe(host, port)
		},
	}

	cmd.Flags().StringVar(&host, "host", "0.0.0.0", "address to bind")
	cmd.Flags().IntVar(&port, "port", 8080, "port to bind")
	cmd.Flags().StringVar(&staticDir, "static", "", "directory to serve statically")
	cmd.Flags().StringVar(&stem, "stem", "", "prefix stripped from static file URIs")
	cmd.Flags().BoolVar(&demo, "demo", false, "register the demo handlers")

	return cmd
}

// registerDemoHandlers wires a handful of endpoints exercising each
// handler kind: plain closing, typed parameters with predicates, an
// SSE stream and a publisher feeding it.
func registerDemoHandlers(server *http.Server) {
	reg := server.Registry()

	reg.Closing("root", nil, func(ctx *http.Ctx) (any, error) {
		visits, _ := ctx.Session.Get("visits", 0).(int)
		ctx.Session.Set("visits", visits+1)
		return "shale is up", nil
	})

	reg.Closing("hello-world", nil, func(ctx *http.Ctx) (any, error) {
		return "Hello", nil
	})

	reg.Closing("add", []http.Param{
		http.P("a", "integer"),
		http.P("b", "integer"),
	}, func(ctx *http.Ctx) (any, error) {
		return ctx.Env.Int("a") + ctx.Env.Int("b"), nil
	})

	reg.Closing("even-small", []http.Param{
		http.P("n", "integer", validation.Between(2, 64), validation.Even()),
	}, func(ctx *http.Ctx) (any, error) {
		return ctx.Env.Int("n"), nil
	})

	reg.Stream("chat", nil, func(ctx *http.Ctx) (any, error) {
		ctx.Subscribe("chat")
		return nil, nil
	})

	reg.Closing("say", []http.Param{
		http.P("message", "string", validation.NonEmpty(), validation.MaxLen(1024)),
	}, func(ctx *http.Ctx) (any, error) {
		delivered := server.Publish("chat", ctx.Env.String("message"))
		return fmt.Sprintf("delivered to %d listeners", delivered), nil
	})

	reg.JSON("whoami", nil, func(ctx *http.Ctx) (any, error) {
		return map[string]any{
			"token":  ctx.Session.Token,
			"visits": ctx.Session.Get("visits", 0),
		}, nil
	})

	server.Sessions().OnNew(func(s *session.Session) error {
		s.Set("visits", 0)
		return nil
	})
}
