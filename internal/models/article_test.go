package models

import "testing"

func TestCategoryValid(t *testing.T) {
	for _, c := range Categories {
		if !c.Valid() {
			t.Errorf("expected %q to be valid", c)
		}
	}

	for _, c := range []Category{"", "gen", "hel", "eco", "General"} {
		if c.Valid() {
			t.Errorf("expected %q to be invalid", c)
		}
	}
}

func TestCategoryLabel(t *testing.T) {
	tests := map[Category]string{
		CategoryGeneral:       "General",
		CategoryTechnology:    "Technology",
		CategoryEntertainment: "Entertainment",
	}
	for c, want := range tests {
		if got := c.Label(); got != want {
			t.Errorf("%q.Label() = %q, want %q", c, got, want)
		}
	}
}
