package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	ctxpkg "github.com/stupiduntilnot/reportchat/internal/context"
	"github.com/stupiduntilnot/reportchat/internal/model"
	"github.com/stupiduntilnot/reportchat/internal/report"
)

var (
	answerColor = color.New(color.FgGreen)
	errorColor  = color.New(color.FgRed, color.Bold)
	headerColor = color.New(color.FgCyan, color.Bold)
)

// readSnapshot decodes a snapshot from path, or stdin when path is "-".
// An empty path yields no snapshot.
func readSnapshot(cmd *cobra.Command, path string) (*report.Snapshot, error) {
	if path == "" {
		return nil, nil
	}
	var r io.Reader
	if path == "-" {
		r = cmd.InOrStdin()
	} else {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open snapshot: %w", err)
		}
		defer f.Close()
		r = f
	}
	var snap *report.Snapshot
	if err := json.NewDecoder(r).Decode(&snap); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return snap, nil
}

func newAskCmd(c *cli) *cobra.Command {
	var snapshotPath string
	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Ask one question about a snapshot and print the answer",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			snap, err := readSnapshot(cmd, snapshotPath)
			if err != nil {
				return err
			}
			a, err := newApp(cmd.Context(), c, "ask")
			if err != nil {
				return err
			}
			defer a.Close()

			if snap != nil {
				a.svc.UpdateSnapshot(snap)
			}
			reply, err := a.svc.Send(cmd.Context(), strings.Join(args, " "))
			out := cmd.OutOrStdout()
			if err != nil {
				if reply.IsError {
					errorColor.Fprintln(out, reply.Text)
				}
				return err
			}
			answerColor.Fprintln(out, reply.Text)
			return nil
		},
	}
	cmd.Flags().StringVarP(&snapshotPath, "snapshot", "s", "", "snapshot JSON file, - for stdin")
	return cmd
}

func newPromptCmd(c *cli) *cobra.Command {
	var snapshotPath string
	cmd := &cobra.Command{
		Use:   "prompt",
		Short: "Print the system prompt built from a snapshot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			snap, err := readSnapshot(cmd, snapshotPath)
			if err != nil {
				return err
			}
			normalizer := report.NewNormalizer(c.log, report.NewFormatter(c.cfg.Locale), nil)
			rc := normalizer.Normalize(snap, report.ReportContext{})
			builder := ctxpkg.PromptBuilder{Language: c.cfg.ResponseLanguage}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), builder.Build(rc))
			return err
		},
	}
	cmd.Flags().StringVarP(&snapshotPath, "snapshot", "s", "", "snapshot JSON file, - for stdin")
	return cmd
}

func newProvidersCmd(_ *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "providers",
		Short: "List the supported backends",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			headerColor.Fprintln(tw, "ID\tNAME\tDEFAULT ENDPOINT\tMODELS")
			for _, p := range model.Providers() {
				endpoint := p.DefaultEndpoint
				if p.RequiresEndpoint {
					endpoint = "(required)"
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", p.ID, p.Name, endpoint, strings.Join(p.Models, ", "))
			}
			return tw.Flush()
		},
	}
}
