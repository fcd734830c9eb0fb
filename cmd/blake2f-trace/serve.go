package main

import (
	"context"
	"encoding/hex"
	"errors"
	"io"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/eth2030/blake2f/blake2f"
	"github.com/eth2030/blake2f/log"
	"github.com/eth2030/blake2f/metrics"
	"github.com/eth2030/blake2f/precompile"
)

func newServeCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "answer BLAKE2F calls over HTTP and expose metrics",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "addr",
				Usage:   "listen address",
				Value:   "127.0.0.1:8553",
				EnvVars: []string{"BLAKE2F_ADDR"},
			},
		},
		Action: func(c *cli.Context) error {
			ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			srv := &http.Server{
				Addr:              c.String("addr"),
				Handler:           newServeMux(precompile.New(synthOptions(c)...)),
				ReadHeaderTimeout: 5 * time.Second,
			}
			errc := make(chan error, 1)
			go func() { errc <- srv.ListenAndServe() }()
			log.Info("Serving blake2f", "addr", srv.Addr)

			select {
			case err := <-errc:
				return err
			case <-ctx.Done():
			}
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				return err
			}
			if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			log.Info("Shutdown complete")
			return nil
		},
	}
}

// newServeMux routes POST /blake2f (hex EIP-152 input in, hex digest out)
// and GET /metrics.
func newServeMux(p *precompile.ProvingBlake2F) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler(metrics.DefaultRegistry, "blake2f"))
	mux.HandleFunc("/blake2f", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		body, err := io.ReadAll(io.LimitReader(r.Body, 2*precompile.InputLength+8))
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		in, err := parseHexInput(string(body))
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		out, err := p.Run(precompile.EncodeInput(in))
		switch {
		case errors.Is(err, blake2f.ErrTooManyRounds):
			http.Error(w, err.Error(), http.StatusUnprocessableEntity)
			return
		case err != nil:
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		io.WriteString(w, hex.EncodeToString(out)+"\n")
	})
	return mux
}
