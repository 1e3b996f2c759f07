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

	"github.com/spf13/cobra"

	"dirpx.dev/phetio/config"
)

const (
	checkMark = "✓"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Work with configuration files",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "check FILE",
		Short: "Validate a configuration file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := config.Load(args[0])
			if err != nil {
				return err
			}
			cfg := f.Config()
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s %s is valid\n", checkMark, args[0])
			fmt.Fprintf(out, "  enabled:                      %t\n", cfg.Enabled)
			fmt.Fprintf(out, "  validation:                   %t\n", cfg.Validation)
			fmt.Fprintf(out, "  suppress_high_frequency:      %t\n", cfg.SuppressHighFrequency)
			fmt.Fprintf(out, "  check_event_stack_on_dispose: %t\n", cfg.CheckEventStackOnDispose)
			fmt.Fprintf(out, "  max_restore_passes:           %d\n", cfg.MaxRestorePasses)
			fmt.Fprintf(out, "  max_unwrap:                   %d\n", cfg.MaxUnwrap)
			if f.Metrics.Enabled {
				fmt.Fprintf(out, "  metrics namespace:            %s\n", metricsNamespace(f))
			}
			return nil
		},
	})
	return cmd
}

func metricsNamespace(f *config.File) string {
	if f.Metrics.Namespace == "" {
		return "phetio"
	}
	return f.Metrics.Namespace
}
