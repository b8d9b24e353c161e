package entity

import "encoding/json"

const (
	ChangeInsert = "INSERT"
	ChangeUpdate = "UPDATE"
	ChangeDelete = "DELETE"
)

// ChangeEvent is published on table_changes:<table> after every write.
type ChangeEvent struct {
	Table     string          `json:"table"`
	Type      string          `json:"type"`
	Record    json.RawMessage `json:"record,omitempty"`
	OldRecord json.RawMessage `json:"old_record,omitempty"`
}

func ChangeChannel(table string) string {
	return "table_changes:" + table
}
