package migrate_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDispatchCoreMigrationContainsConstraints(t *testing.T) {
	content := readMigration(t, "*_create_dispatch_core.sql")

	checks := []string{
		"CREATE TABLE IF NOT EXISTS assignments",
		"CREATE UNIQUE INDEX ux_assignments_driver_date",
		"WHERE driver_id IS NOT NULL AND status IN ('scheduled', 'confirmed', 'active')",
		"FOREIGN KEY (route_id) REFERENCES routes(id) ON DELETE CASCADE",
		"CHECK (start_minutes >= 0 AND start_minutes < 1440)",
		"DROP TABLE IF EXISTS assignments",
	}

	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestBiddingMigrationContainsConstraints(t *testing.T) {
	content := readMigration(t, "*_create_bidding.sql")

	checks := []string{
		"CREATE TABLE IF NOT EXISTS bid_windows",
		"CREATE UNIQUE INDEX ux_bid_windows_assignment_open",
		"WHERE status = 'open'",
		"CREATE UNIQUE INDEX ux_bids_window_driver ON bids (window_id, driver_id)",
		"DROP TABLE IF EXISTS bids",
	}

	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestOutboxMigrationContainsDedupIndex(t *testing.T) {
	content := readMigration(t, "*_create_outbox_notifications.sql")

	checks := []string{
		"CREATE UNIQUE INDEX ux_outbox_events_dedup_key ON outbox_events (dedup_key)",
		"CREATE INDEX ix_outbox_events_unpublished",
		"DROP TABLE IF EXISTS outbox_events",
	}

	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func readMigration(t *testing.T, pattern string) string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join("migrations", pattern))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no migration matching %q found", pattern)
	}

	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	return string(data)
}
