// internal/models/standup.go
package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Intent is the classification label returned by the standup pipeline.
type Intent string

const (
	IntentLogUpdate   Intent = "log_update"
	IntentQueryUpdate Intent = "query_update"
	IntentUpdateEntry Intent = "update_entry"
	IntentUnknown     Intent = "unknown"
)

// Intents lists every label the pipeline may return.
var Intents = []Intent{IntentLogUpdate, IntentQueryUpdate, IntentUpdateEntry, IntentUnknown}

func (i Intent) Valid() bool {
	for _, known := range Intents {
		if i == known {
			return true
		}
	}
	return false
}

func (i Intent) String() string {
	return string(i)
}

// StandupInput is built fresh for every request to /fullpipeline/run.
type StandupInput struct {
	Sentence   string
	EmployeeID int
	Confirm    bool
}

// ConfirmInsert returns the wire value of the confirmation flag.
func (in StandupInput) ConfirmInsert() int {
	if in.Confirm {
		return 1
	}
	return 0
}

func (in StandupInput) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Sentence      string `json:"sentence"`
		EmployeeID    int    `json:"employee_id"`
		ConfirmInsert int    `json:"confirm_insert"`
	}{in.Sentence, in.EmployeeID, in.ConfirmInsert()})
}

// InterpretationResult is the dry-run answer of the pipeline.
type InterpretationResult struct {
	Intent   Intent            `json:"intent"`
	Entities map[string]string `json:"entities"`
}

// Clone returns a deep copy so callers cannot mutate a stored result.
func (r *InterpretationResult) Clone() *InterpretationResult {
	if r == nil {
		return nil
	}
	return &InterpretationResult{Intent: r.Intent, Entities: cloneEntities(r.Entities)}
}

// EntityKeys returns the slot names in sorted order.
func (r *InterpretationResult) EntityKeys() []string {
	if r == nil {
		return nil
	}
	return sortedKeys(r.Entities)
}

// StandupID is the identifier assigned by the backend. It may be sent as
// a JSON number or a JSON string.
type StandupID string

func (id *StandupID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = StandupID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("standup_id: %w", err)
	}
	*id = StandupID(n.String())
	return nil
}

func (id StandupID) String() string {
	return string(id)
}

// StandupRecord is the persisted standup entry returned by a commit.
type StandupRecord struct {
	Intent    Intent            `json:"intent"`
	Entities  map[string]string `json:"entities"`
	StandupID StandupID         `json:"standup_id"`
}

func (r *StandupRecord) EntityKeys() []string {
	if r == nil {
		return nil
	}
	return sortedKeys(r.Entities)
}

// ConfirmationOutcome is the terminal result of the intake flow. Saved=false
// with a nil Record means the user declined and nothing was persisted.
type ConfirmationOutcome struct {
	Saved  bool           `json:"saved"`
	Record *StandupRecord `json:"record,omitempty"`
}

func NotSaved() *ConfirmationOutcome {
	return &ConfirmationOutcome{Saved: false}
}

// FormatEntities renders entities as "key: value" pairs in key order.
func FormatEntities(entities map[string]string) string {
	keys := sortedKeys(entities)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+entities[k])
	}
	return strings.Join(parts, ", ")
}

func cloneEntities(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
