package archive

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Archiver persists raw adapter payloads so that every sync run leaves an
// auditable copy of what each source returned, independent of what the
// pipeline stored in the database.
type Archiver interface {
	Store(name string, data []byte) error
	Retrieve(name string) ([]byte, error)
	List(prefix string) ([]string, error)
	Delete(name string) error
}

// ObjectName builds the archive key for one platform's payload in one run.
// Keys sort chronologically per platform.
func ObjectName(platformName string, runAt time.Time) string {
	slug := strings.ToLower(strings.ReplaceAll(platformName, " ", "-"))
	return fmt.Sprintf("%s/%s.json", slug, runAt.UTC().Format("2006-01-02T15-04-05"))
}

// Marshal renders a payload for archival.
func Marshal(payload interface{}) ([]byte, error) {
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal archive payload: %w", err)
	}
	return data, nil
}

// Noop discards everything. Used when no archive target is configured.
type Noop struct{}

var _ Archiver = (*Noop)(nil)

func (Noop) Store(string, []byte) error      { return nil }
func (Noop) Retrieve(string) ([]byte, error) { return nil, fmt.Errorf("archiving is disabled") }
func (Noop) List(string) ([]string, error)   { return nil, nil }
func (Noop) Delete(string) error             { return nil }
