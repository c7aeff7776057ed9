package db

import (
	"database/sql"
	"errors"
	"fmt"
	"sort"
)

// Event is one row of the events table with its children attached.
type Event struct {
	ID        int64
	Timestamp int64
	ParentID  sql.NullInt64
	EventType string
	Payload   sql.NullString
	Children  []*Event
}

// ErrNoProcess is returned when no process.started event matches.
var ErrNoProcess = errors.New("no process.started event found")

// LatestProcess returns the id of the most recent process.started event. An
// empty role matches any process.
func LatestProcess(db *sql.DB, role string) (int64, error) {
	query := `SELECT id FROM events WHERE event_type = ?`
	args := []any{EventProcessStarted}
	if role != "" {
		query += ` AND json_extract(payload, '$.role') = ?`
		args = append(args, role)
	}
	query += ` ORDER BY id DESC LIMIT 1`

	var id int64
	err := db.QueryRow(query, args...).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrNoProcess
	}
	if err != nil {
		return 0, fmt.Errorf("find latest process: %w", err)
	}
	return id, nil
}

// EventTree loads the subtree rooted at rootID. It returns nil when the root
// does not exist.
func EventTree(db *sql.DB, rootID int64) (*Event, error) {
	rows, err := db.Query(`
		WITH RECURSIVE subtree(id) AS (
			SELECT id FROM events WHERE id = ?
			UNION ALL
			SELECT e.id FROM events e JOIN subtree s ON e.parent_id = s.id
		)
		SELECT e.id, e.timestamp, e.parent_id, e.event_type, e.payload
		FROM events e
		WHERE e.id IN (SELECT id FROM subtree)
		ORDER BY e.id ASC
	`, rootID)
	if err != nil {
		return nil, fmt.Errorf("query subtree: %w", err)
	}
	defer rows.Close()

	var events []*Event
	for rows.Next() {
		ev := &Event{}
		if err := rows.Scan(&ev.ID, &ev.Timestamp, &ev.ParentID, &ev.EventType, &ev.Payload); err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return buildTree(events, rootID), nil
}

func buildTree(events []*Event, rootID int64) *Event {
	byID := make(map[int64]*Event, len(events))
	for _, ev := range events {
		byID[ev.ID] = ev
	}
	for _, ev := range events {
		if ev.ParentID.Valid && ev.ParentID.Int64 != ev.ID {
			if parent, ok := byID[ev.ParentID.Int64]; ok {
				parent.Children = append(parent.Children, ev)
			}
		}
	}
	for _, ev := range events {
		sort.Slice(ev.Children, func(i, j int) bool {
			return ev.Children[i].ID < ev.Children[j].ID
		})
	}
	return byID[rootID]
}
