package main

import (
	"strings"
	"testing"
)

func TestReadRows(t *testing.T) {
	in := `title,author,isbn,genre,copies
Dune,Frank Herbert,9780441013593,SF,3
"Emma, Volume 1", Jane Austen,9780141439587,Romance,
Ulysses,James Joyce,,Modernist
`
	rows, err := readRows(strings.NewReader(in))
	if err != nil {
		t.Fatalf("readRows: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("got %d rows, want 3", len(rows))
	}
	if f := rows[0].form; f.TotalCopies != 3 || f.AvailableCopies != 3 || rows[0].line != 2 {
		t.Fatalf("row 1 = %+v (line %d)", f, rows[0].line)
	}
	if f := rows[1].form; f.Title != "Emma, Volume 1" || f.Author != "Jane Austen" || f.TotalCopies != 1 {
		t.Fatalf("row 2 = %+v", f)
	}
	if f := rows[2].form; f.ISBN != "" || f.AvailableCopies != 1 {
		t.Fatalf("row 3 = %+v", f)
	}
}

func TestReadRowsRejectsBadInput(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"too few fields", "Dune,Frank Herbert\n"},
		{"missing author", "Dune,,123,SF\n"},
		{"negative copies", "Dune,Frank Herbert,123,SF,-1\n"},
		{"non-numeric copies", "Dune,Frank Herbert,123,SF,many\n"},
	}
	for _, tt := range tests {
		if _, err := readRows(strings.NewReader(tt.in)); err == nil {
			t.Errorf("%s: expected an error", tt.name)
		}
	}
}

func TestTruncateString(t *testing.T) {
	if got := truncateString("The Left Hand of Darkness", 10); got != "The Lef..." {
		t.Fatalf("got %q", got)
	}
	if got := truncateString("Dune", 2); got != "Du" {
		t.Fatalf("got %q", got)
	}
}
