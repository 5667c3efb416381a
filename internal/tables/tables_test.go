package tables

import (
	"reflect"
	"strings"
	"testing"

	"github.com/Limetric/simschema/internal/backend/mssql"
	"github.com/Limetric/simschema/internal/migration"
)

func TestSelect(t *testing.T) {
	got, err := Select([]string{"useraccounts", "avatarnames"})
	if err != nil {
		t.Fatalf("Select() error: %v", err)
	}
	if len(got) != 2 || got[0].Name != "useraccounts" || got[1].Name != "avatarnames" {
		t.Errorf("Select() = %v, want useraccounts then avatarnames", got)
	}

	all, err := Select(nil)
	if err != nil {
		t.Fatalf("Select(nil) error: %v", err)
	}
	if len(all) != len(Names()) {
		t.Errorf("len(Select(nil)) = %d, want %d", len(all), len(Names()))
	}

	if _, err := Select([]string{"regions"}); err == nil || !strings.Contains(err.Error(), "unknown table stream") {
		t.Errorf("Select(regions) error = %v, want unknown table stream", err)
	}
}

func TestNames(t *testing.T) {
	want := []string{"avatarnames", "travelingdata", "useraccounts"}
	if got := Names(); !reflect.DeepEqual(got, want) {
		t.Errorf("Names() = %v, want %v", got, want)
	}
}

// Every registered stream must plan cleanly.
func TestStreamsPlan(t *testing.T) {
	for _, s := range All() {
		t.Run(s.Name, func(t *testing.T) {
			plans, err := migration.Plan(mssql.Dialect{}, s.Elements)
			if err != nil {
				t.Fatalf("Plan() error: %v", err)
			}
			if len(plans) == 0 {
				t.Fatal("Plan() returned no tables")
			}
		})
	}
}

func TestUserAccountsRevisions(t *testing.T) {
	s, err := Select([]string{"useraccounts"})
	if err != nil {
		t.Fatal(err)
	}
	plans, err := migration.Plan(mssql.Dialect{}, s[0].Elements)
	if err != nil {
		t.Fatalf("Plan() error: %v", err)
	}
	if len(plans) != 2 {
		t.Fatalf("len(plans) = %d, want 2", len(plans))
	}
	if plans[0].Table != "useraccounts" || plans[0].MaxRevision() != 5 {
		t.Errorf("plans[0] = %s rev %d, want useraccounts rev 5", plans[0].Table, plans[0].MaxRevision())
	}
	if plans[1].Table != "useraccounts_serial" || plans[1].MaxRevision() != 1 {
		t.Errorf("plans[1] = %s rev %d, want useraccounts_serial rev 1", plans[1].Table, plans[1].MaxRevision())
	}
}
