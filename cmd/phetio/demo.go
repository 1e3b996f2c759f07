/*
   Copyright 2025 The DIRPX Authors.

   Licensed under the Apache License, Version 2.0 (the "License");
   you may not use this file except in compliance with the License.
   You may obtain a copy of the License at

       http://www.apache.org/licenses/LICENSE-2.0

   Unless required by applicable law or agreed to in writing, software
   distributed under the License is distributed on an "AS IS" BASIS,
   WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
   See the License for the specific language governing permissions and
   limitations under the License.
*/

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"reflect"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"dirpx.dev/phetio"
	"dirpx.dev/phetio/api"
	"dirpx.dev/phetio/datastream"
	"dirpx.dev/phetio/metrics"
	"dirpx.dev/phetio/state"
	"dirpx.dev/phetio/tandem"
)

type demoOptions struct {
	streamPath  string
	apiPath     string
	statePath   string
	apiVersion  string
	metricsAddr string
}

func newDemoCmd(root *rootOptions) *cobra.Command {
	opts := &demoOptions{}
	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Run the example simulation",
		Long: `Run a small projectile simulation and write its artifacts.

The data stream goes to --stream as JSON lines. The API document and the
final state snapshot are written when --api and --state are given. With
--metrics-addr the collectors are served until interrupted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, err := root.load()
			if err != nil {
				return err
			}
			log := logger(cmd, f)

			var m *metrics.Metrics
			if f.Metrics.Enabled || opts.metricsAddr != "" {
				m = metrics.New(metricsNamespace(f))
			}

			out, closeOut, err := create(cmd.OutOrStdout(), opts.streamPath)
			if err != nil {
				return err
			}
			defer closeOut()

			phetio.SetConfig(f.Config())
			reg, err := runDemo(out, log, m)
			if err != nil {
				return err
			}

			if opts.apiPath != "" {
				if err := writeAPI(reg, opts.apiPath, opts.apiVersion); err != nil {
					return err
				}
				log.Info().Str("path", opts.apiPath).Msg("API written")
			}
			if opts.statePath != "" {
				if err := writeState(reg, opts.statePath); err != nil {
					return err
				}
				log.Info().Str("path", opts.statePath).Msg("state written")
			}
			if opts.metricsAddr != "" {
				ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
				defer stop()
				return serveMetrics(ctx, log, opts.metricsAddr, m)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&opts.streamPath, "stream", "-", "data stream output, - for stdout")
	cmd.Flags().StringVar(&opts.apiPath, "api", "", "write the API document to this file")
	cmd.Flags().StringVar(&opts.statePath, "state", "", "write the final state snapshot to this file")
	cmd.Flags().StringVar(&opts.apiVersion, "api-version", "1.0.0", "version recorded in the API document")
	cmd.Flags().StringVar(&opts.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")
	return cmd
}

// runDemo builds and launches the example simulation, recording its data
// stream to w.
func runDemo(w io.Writer, log zerolog.Logger, m *metrics.Metrics) (*tandem.Registry, error) {
	if err := phetio.RegisterType(reflect.TypeOf(&ball{}), ballIO); err != nil {
		return nil, err
	}

	stream := datastream.New(datastream.WithLogger(log))
	enc := datastream.NewEncoder(w)
	var encErr error
	unsubscribe := stream.Subscribe(func(r *datastream.Record) {
		if err := enc.Encode(r); err != nil && encErr == nil {
			encErr = err
		}
	})
	defer unsubscribe()

	reg := phetio.NewTandemRegistry(
		tandem.WithLogger(log),
		tandem.WithSink(stream),
		tandem.WithMetrics(m),
	)
	sim, err := newSimulation(reg, "projectileMotion")
	if err != nil {
		return nil, err
	}
	if err := reg.Launch(); err != nil {
		return nil, err
	}
	if err := sim.script(); err != nil {
		return nil, err
	}
	reg.Flush()
	if diags := reg.Diagnostics(); len(diags) > 0 {
		return nil, errors.Join(diags...)
	}
	log.Debug().Str("session", stream.Session().String()).Int("instances", reg.Count()).Msg("demo finished")
	return reg, encErr
}

func writeAPI(reg *tandem.Registry, path, version string) error {
	doc, err := api.Build(reg, version)
	if err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := doc.Write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func writeState(reg *tandem.Registry, path string) error {
	snap, err := state.Capture(reg)
	if err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := snap.Write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func serveMetrics(ctx context.Context, log zerolog.Logger, addr string, m *metrics.Metrics) error {
	srv := &http.Server{Addr: addr, Handler: m.Handler(), ReadHeaderTimeout: 5 * time.Second}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	log.Info().Str("addr", addr).Msg("serving metrics")

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown metrics server: %w", err)
	}
	return nil
}

// create opens path for writing, or returns stdout for "-".
func create(stdout io.Writer, path string) (io.Writer, func(), error) {
	if path == "-" || path == "" {
		return stdout, func() {}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, err
	}
	return f, func() { _ = f.Close() }, nil
}
