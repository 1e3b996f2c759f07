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
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"dirpx.dev/phetio/api"
)

// errBreaking makes the command exit non-zero after printing the report.
var errBreaking = errors.New("breaking API changes found")

func newAPICmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "api",
		Short: "Work with API documents",
	}
	cmd.AddCommand(newAPIDiffCmd())
	return cmd
}

func newAPIDiffCmd() *cobra.Command {
	var breakingOnly bool
	cmd := &cobra.Command{
		Use:   "diff OLD NEW",
		Short: "Compare two API documents",
		Long: `Compare two API documents and list their differences.

Removing elements, types, methods or events, changing an element's type and
making an element read-only are breaking. The command fails when breaking
changes are found, and warns when the new version does not leave the old
version's major line although the API broke.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			prev, err := readDocument(args[0])
			if err != nil {
				return err
			}
			next, err := readDocument(args[1])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			report := api.Diff(prev, next)
			for _, c := range report.Changes {
				if breakingOnly && c.Severity != api.Breaking {
					continue
				}
				fmt.Fprintln(out, c)
			}
			if !report.HasBreaking() {
				fmt.Fprintf(out, "%d change(s), none breaking\n", len(report.Changes))
				return nil
			}
			if ok, err := api.Compatible(prev, next); err == nil && ok {
				fmt.Fprintf(out, "version %s -> %s does not signal the break\n", prev.Version, next.Version)
			}
			return fmt.Errorf("%w: %d", errBreaking, len(report.Breaking()))
		},
	}
	cmd.Flags().BoolVar(&breakingOnly, "breaking-only", false, "only print breaking changes")
	return cmd
}

func readDocument(path string) (*api.Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	doc, err := api.Read(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}
