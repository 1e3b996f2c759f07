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
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"dirpx.dev/phetio/datastream"
)

func newStreamCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stream",
		Short: "Work with recorded data streams",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "cat FILE",
		Short: "Print a JSON lines recording as an event tree",
		Long:  "Print a JSON lines recording as an event tree. Use - to read standard input.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var in io.Reader = cmd.InOrStdin()
			if args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				in = f
			}
			return catStream(cmd.OutOrStdout(), in)
		},
	})
	return cmd
}

func catStream(w io.Writer, r io.Reader) error {
	dec := datastream.NewDecoder(r)
	for {
		rec, err := dec.Decode()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		printRecord(w, rec, 0)
	}
}

func printRecord(w io.Writer, r *datastream.Record, depth int) {
	fmt.Fprintf(w, "%s%d %s %s.%s", strings.Repeat("  ", depth), r.Index, r.EventType, r.PhetioID, r.Event)
	if len(r.Data) > 0 {
		fmt.Fprintf(w, " %v", r.Data)
	}
	fmt.Fprintln(w)
	for _, c := range r.Children {
		printRecord(w, c, depth+1)
	}
}
