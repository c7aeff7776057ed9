package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/stupiduntilnot/reportchat/internal/conversation"
	"github.com/stupiduntilnot/reportchat/internal/web"
)

func newServeCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the chat API and websocket",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, c)
		},
	}
}

// serve runs the web server and the conversation sweeper until ctx is done
// or either fails.
func serve(ctx context.Context, c *cli) error {
	a, err := newApp(ctx, c, "server")
	if err != nil {
		return err
	}
	defer a.Close()

	sweeper := &conversation.Sweeper{
		Store:    a.conv,
		Interval: c.cfg.SweepInterval,
		Log:      c.log,
		OnExpire: a.svc.Expired,
	}
	server := web.NewServer(a.svc, web.Options{
		AllowedOrigins: c.cfg.AllowedOrigins,
		Log:            c.log,
	})

	c.log.WithFields(logrus.Fields{
		"addr":    c.cfg.ListenAddr,
		"backend": c.cfg.StoreBackend,
		"ttl":     c.cfg.ConversationTTL.String(),
	}).Info("reportchat starting")

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return sweeper.Run(ctx) })
	g.Go(func() error { return server.ListenAndServe(ctx, c.cfg.ListenAddr) })
	return g.Wait()
}
