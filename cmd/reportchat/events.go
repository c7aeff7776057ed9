package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/stupiduntilnot/reportchat/internal/config"
	"github.com/stupiduntilnot/reportchat/internal/db"
)

type eventsOptions struct {
	id        int64
	role      string
	maxDepth  int
	jsonOut   bool
	noPayload bool
}

func newEventsCmd(c *cli) *cobra.Command {
	var o eventsOptions
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Print the SQLite event log as a tree",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if c.cfg.StoreBackend != config.BackendSQLite {
				return fmt.Errorf("the event log is only kept by the %s backend", config.BackendSQLite)
			}
			database, err := db.OpenDB(c.cfg.DBPath)
			if err != nil {
				return err
			}
			defer database.Close()
			if err := db.InitSchema(database); err != nil {
				return fmt.Errorf("failed to init schema: %w", err)
			}

			rootID := o.id
			if rootID == 0 {
				if rootID, err = db.LatestProcess(database, o.role); err != nil {
					return err
				}
			}
			root, err := db.EventTree(database, rootID)
			if err != nil {
				return err
			}
			if root == nil {
				return fmt.Errorf("event %d not found", rootID)
			}

			out := cmd.OutOrStdout()
			if o.jsonOut {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(toJSONEvent(root, 1, o.maxDepth, o.noPayload))
			}
			printTree(out, root, "", true, 1, o.maxDepth, o.noPayload)
			return nil
		},
	}
	cmd.Flags().Int64Var(&o.id, "id", 0, "show the subtree of a specific event ID")
	cmd.Flags().StringVar(&o.role, "role", "", "pick the latest process with this role (server, ask)")
	cmd.Flags().IntVarP(&o.maxDepth, "depth", "L", 0, "limit display depth (0 = unlimited)")
	cmd.Flags().BoolVar(&o.jsonOut, "json", false, "output JSON")
	cmd.Flags().BoolVar(&o.noPayload, "no-payload", false, "hide payload details")
	return cmd
}

// printTree renders the event tree using box-drawing characters.
func printTree(w io.Writer, ev *db.Event, prefix string, isLast bool, depth, maxDepth int, noPayload bool) {
	connector := "├── "
	if isLast {
		connector = "└── "
	}
	line := formatEvent(ev, noPayload)
	if depth == 1 {
		fmt.Fprintln(w, line)
	} else {
		fmt.Fprintln(w, prefix+connector+line)
	}

	childPrefix := prefix
	if depth > 1 {
		if isLast {
			childPrefix += "    "
		} else {
			childPrefix += "│   "
		}
	}
	if maxDepth > 0 && depth >= maxDepth {
		if len(ev.Children) > 0 {
			fmt.Fprintln(w, childPrefix+"└── [...]")
		}
		return
	}
	for i, child := range ev.Children {
		printTree(w, child, childPrefix, i == len(ev.Children)-1, depth+1, maxDepth, noPayload)
	}
}

// formatEvent formats one line: [id] timestamp  event_type  key=value ...
func formatEvent(ev *db.Event, noPayload bool) string {
	ts := time.Unix(ev.Timestamp, 0).UTC().Format("2006-01-02 15:04:05")
	line := fmt.Sprintf("[%d] %s  %s", ev.ID, ts, ev.EventType)
	if noPayload {
		return line
	}
	m := decodePayload(ev)
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		line += fmt.Sprintf("  %s=%s", k, formatValue(m[k]))
	}
	return line
}

func decodePayload(ev *db.Event) map[string]any {
	if !ev.Payload.Valid || ev.Payload.String == "" {
		return nil
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(ev.Payload.String), &m); err != nil {
		return nil
	}
	return m
}

// formatValue renders a payload value, truncating long text.
func formatValue(v any) string {
	switch val := v.(type) {
	case string:
		if len(val) > 80 {
			return fmt.Sprintf("%q", val[:80]+"...")
		}
		return val
	case float64:
		if val == float64(int64(val)) {
			return fmt.Sprintf("%d", int64(val))
		}
		return fmt.Sprintf("%g", val)
	default:
		return fmt.Sprintf("%v", val)
	}
}

type jsonEvent struct {
	ID        int64          `json:"id"`
	Timestamp int64          `json:"timestamp"`
	EventType string         `json:"event_type"`
	Payload   map[string]any `json:"payload,omitempty"`
	Children  []jsonEvent    `json:"children,omitempty"`
}

func toJSONEvent(ev *db.Event, depth, maxDepth int, noPayload bool) jsonEvent {
	je := jsonEvent{ID: ev.ID, Timestamp: ev.Timestamp, EventType: ev.EventType}
	if !noPayload {
		je.Payload = decodePayload(ev)
	}
	if maxDepth > 0 && depth >= maxDepth {
		return je
	}
	for _, child := range ev.Children {
		je.Children = append(je.Children, toJSONEvent(child, depth+1, maxDepth, noPayload))
	}
	return je
}
