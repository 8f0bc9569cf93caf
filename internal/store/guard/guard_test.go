package guard

import (
	"errors"
	"testing"

	"github.com/relata/relata/internal/model"
)

func TestCheckLedgerTables(t *testing.T) {
	cases := []struct {
		name  string
		query string
		want  bool // forbidden
	}{
		{"insert activity", "INSERT INTO activities (workspace_id) VALUES (?)", false},
		{"update activity", "UPDATE activities SET payload=? WHERE activity_id=?", true},
		{"delete activity", "DELETE FROM activities WHERE activity_id=?", true},
		{"bulk delete activities", "DELETE FROM activities", true},
		{"update property value", "UPDATE property_values SET value=?", true},
		{"delete assoc row", "DELETE FROM contact_company_assocs WHERE assoc_id=?", true},
		{"update execution", "UPDATE workflow_executions SET status=?", true},
		{"insert execution", "INSERT INTO workflow_executions (execution_id) VALUES (?)", false},
		{"lowercase verb", "update deal_contact_assocs set is_primary=?", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := Check(tc.query)
			if got := errors.Is(err, model.ErrForbiddenMutation); got != tc.want {
				t.Fatalf("Check(%q) = %v, forbidden=%v want %v", tc.query, err, got, tc.want)
			}
		})
	}
}

func TestCheckArchiveOnlyTables(t *testing.T) {
	if err := Check("UPDATE contacts SET archived_at=? WHERE contact_id=?"); err != nil {
		t.Fatalf("archive update rejected: %v", err)
	}
	if err := Check("UPDATE deals SET stage_id=?, status=?"); err != nil {
		t.Fatalf("stage update rejected: %v", err)
	}
	if err := Check("DELETE FROM contacts WHERE contact_id=?"); !errors.Is(err, model.ErrForbiddenMutation) {
		t.Fatalf("contact delete allowed: %v", err)
	}
	if err := Check("DELETE FROM workflows"); !errors.Is(err, model.ErrForbiddenMutation) {
		t.Fatalf("workflow delete allowed: %v", err)
	}
}

func TestCheckOpenAndReads(t *testing.T) {
	if err := Check("DELETE FROM workspaces WHERE workspace_id=?"); err != nil {
		t.Fatalf("workspace delete rejected: %v", err)
	}
	if err := Check("SELECT * FROM activities"); err != nil {
		t.Fatalf("select rejected: %v", err)
	}
	if err := Check("CREATE TABLE IF NOT EXISTS activities (x TEXT)"); err != nil {
		t.Fatalf("ddl rejected: %v", err)
	}
}

func TestClassifyQuotedIdent(t *testing.T) {
	if err := Check(`DELETE FROM "activities" WHERE activity_id=$1`); !errors.Is(err, model.ErrForbiddenMutation) {
		t.Fatalf("quoted ident bypassed the guard: %v", err)
	}
}

func TestPolicyFor(t *testing.T) {
	if PolicyFor("ACTIVITIES") != PolicyLedger {
		t.Fatal("case-insensitive lookup broken")
	}
	if PolicyFor("unknown_table") != PolicyOpen {
		t.Fatal("unknown tables should be open")
	}
}
