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
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"dirpx.dev/phetio/config"
)

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type rootOptions struct {
	cfgFile string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "phetio",
		Short: "Inspect simulation instrumentation artifacts",
		Long: `phetio works with the artifacts of an instrumented simulation.

  phetio api diff OLD NEW   # report API changes, failing on breaking ones
  phetio stream cat FILE    # pretty-print a recorded data stream
  phetio config check FILE  # validate a configuration file
  phetio demo               # run the example simulation`,
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVarP(&opts.cfgFile, "config", "c", "", "config file path")

	cmd.AddCommand(
		newAPICmd(),
		newStreamCmd(),
		newConfigCmd(),
		newDemoCmd(opts),
	)
	return cmd
}

// load returns the configuration named by --config, or an empty file
// (all defaults) when the flag is unset.
func (o *rootOptions) load() (*config.File, error) {
	if o.cfgFile == "" {
		return &config.File{}, nil
	}
	return config.Load(o.cfgFile)
}

func logger(cmd *cobra.Command, f *config.File) zerolog.Logger {
	return f.Logger(cmd.ErrOrStderr())
}
