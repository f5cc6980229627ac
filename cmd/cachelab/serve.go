package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	log "github.com/go-pkgz/lgr"
	"github.com/spf13/cobra"

	"cachelab/internal/labserver"
)

func newServeCommand(a *app) *cobra.Command {
	var seed string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the lab cache server with its admin API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if seed == "" {
				seed = a.cfg.Server.Seed
			}
			return a.serve(cmd.Context(), seed)
		},
	}
	cmd.Flags().StringVar(&seed, "seed", "", "JSON file of entries to load before serving")
	return cmd
}

func (a *app) serve(parent context.Context, seed string) error {
	srv, err := labserver.New(a.cfg)
	if err != nil {
		return err
	}
	defer srv.Close()

	if seed != "" {
		n, err := srv.Seed(seed)
		if err != nil {
			return err
		}
		log.Printf("[INFO] seeded %d entr(ies) from %s", n, seed)
	}

	addr := a.cfg.ListenAddr()
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}

	httpSrv := &http.Server{
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Printf("[INFO] cachelab listening on %s, origin=%q", addr, a.cfg.Server.Origin)
		if err := httpSrv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("[ERROR] server: %v", err)
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpSrv.Shutdown(shutdownCtx)
}
