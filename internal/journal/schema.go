package journal

import (
	"context"
	"fmt"
)

// SchemaVersion is the migration version this binary writes.
const SchemaVersion uint = 1

// SchemaStatus describes the journal's migration state.
type SchemaStatus struct {
	CurrentVersion  uint
	RequiredVersion uint
	Dirty           bool
	Compatible      bool
}

// Status reads the golang-migrate bookkeeping table.
func (j *Journal) Status(ctx context.Context) (*SchemaStatus, error) {
	s := &SchemaStatus{RequiredVersion: SchemaVersion}

	var version uint
	var dirty bool
	err := j.db.QueryRowContext(ctx, "SELECT version, dirty FROM schema_migrations LIMIT 1").Scan(&version, &dirty)
	if err != nil {
		return nil, fmt.Errorf("read schema version: %w", err)
	}
	s.CurrentVersion = version
	s.Dirty = dirty
	s.Compatible = !dirty && version == SchemaVersion
	return s, nil
}

// String renders the status for the CLI.
func (s *SchemaStatus) String() string {
	switch {
	case s.Dirty:
		return fmt.Sprintf("dirty at v%d: a migration failed partway; delete the journal file to rebuild it", s.CurrentVersion)
	case s.CurrentVersion > s.RequiredVersion:
		return fmt.Sprintf("v%d is newer than this binary (v%d); upgrade tgwatch", s.CurrentVersion, s.RequiredVersion)
	case s.CurrentVersion < s.RequiredVersion:
		return fmt.Sprintf("v%d, needs v%d", s.CurrentVersion, s.RequiredVersion)
	default:
		return fmt.Sprintf("v%d, up to date", s.CurrentVersion)
	}
}
