package simtypes

import (
	"testing"

	"github.com/google/uuid"
)

const testID = "6f1a2b3c-0000-4000-8000-00000000abcd"

func TestParseUGUIWithName(t *testing.T) {
	id := uuid.MustParse(testID)
	tests := []struct {
		name string
		in   string
		want UGUIWithName
	}{
		{"bare id", testID, UGUIWithName{ID: id}},
		{"with home uri", testID + ";http://grid.example:8002/", UGUIWithName{ID: id, HomeURI: "http://grid.example:8002/"}},
		{"with name", testID + ";http://grid.example:8002/;Ada Lovelace", UGUIWithName{ID: id, HomeURI: "http://grid.example:8002/", FirstName: "Ada", LastName: "Lovelace"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseUGUIWithName(tt.in)
			if err != nil {
				t.Fatalf("ParseUGUIWithName(%q) error: %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("ParseUGUIWithName(%q) = %+v, want %+v", tt.in, got, tt.want)
			}
			if got.String() != tt.in {
				t.Errorf("String() = %q, want %q", got.String(), tt.in)
			}
		})
	}

	if _, err := ParseUGUIWithName("not-an-id;http://grid/"); err == nil {
		t.Error("ParseUGUIWithName should reject an invalid id")
	}
}

func TestParseUGUI(t *testing.T) {
	got, err := ParseUGUI(testID + ";http://grid.example/;Ada Lovelace")
	if err != nil {
		t.Fatal(err)
	}
	want := UGUI{ID: uuid.MustParse(testID), HomeURI: "http://grid.example/"}
	if got != want {
		t.Errorf("ParseUGUI() = %+v, want %+v", got, want)
	}
	if got.String() != testID+";http://grid.example/" {
		t.Errorf("String() = %q", got.String())
	}
}

func TestParseUGI(t *testing.T) {
	in := testID + ";http://grid.example/;Builders; Guild"
	got, err := ParseUGI(in)
	if err != nil {
		t.Fatal(err)
	}
	if got.GroupName != "Builders; Guild" {
		t.Errorf("GroupName = %q, want %q", got.GroupName, "Builders; Guild")
	}
	if got.String() != in {
		t.Errorf("String() = %q, want %q", got.String(), in)
	}
}

func TestUGIWithoutGroupName(t *testing.T) {
	in := testID + ";http://grid.example/"
	got, err := ParseUGI(in)
	if err != nil {
		t.Fatal(err)
	}
	if got.GroupName != "" {
		t.Errorf("GroupName = %q, want empty", got.GroupName)
	}
	if got.String() != in {
		t.Errorf("String() = %q, want %q", got.String(), in)
	}
}

func TestDateFromUnix(t *testing.T) {
	d := DateFromUnix(1700000000)
	if d.Unix() != 1700000000 {
		t.Errorf("Unix() = %d, want 1700000000", d.Unix())
	}
	if d.Location().String() != "UTC" {
		t.Errorf("Location() = %v, want UTC", d.Location())
	}
}

func TestParcelID(t *testing.T) {
	id := uuid.MustParse(testID)
	p := ParcelID(id)
	if p.UUID() != id || p.String() != testID {
		t.Errorf("ParcelID = %s, want %s", p, testID)
	}
}
