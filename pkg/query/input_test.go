package query

import (
	"strings"
	"testing"
)

func TestReadInput(t *testing.T) {
	data := strings.Join([]string{
		"Origin, Destination ,mode,departure_time",
		"A,B,driving,now",
		"# a comment row",
		"C,D,,",
		"",
	}, "\n")

	in, err := ReadInput(strings.NewReader(data))
	if err != nil {
		t.Fatalf("ReadInput() error = %v", err)
	}

	wantHeader := []string{"origin", "destination", "mode", "departure_time"}
	if len(in.Header) != len(wantHeader) {
		t.Fatalf("header has %d columns, want %d", len(in.Header), len(wantHeader))
	}
	for i, h := range wantHeader {
		if in.Header[i] != h {
			t.Errorf("header[%d] = %q, want %q", i, in.Header[i], h)
		}
	}

	if len(in.Rows) != 2 {
		t.Fatalf("got %d rows, want 2 (comment row skipped)", len(in.Rows))
	}
	if in.Rows[0]["mode"] != "driving" {
		t.Errorf("rows[0][mode] = %q, want %q", in.Rows[0]["mode"], "driving")
	}
	if _, ok := in.Rows[1]["mode"]; ok {
		t.Errorf("rows[1][mode] is populated, want empty cell left unset")
	}
}

func TestReadInputInvalidHeader(t *testing.T) {
	data := "origin,destination,mode,favorite_color\nA,B,driving,blue\n"

	_, err := ReadInput(strings.NewReader(data))
	if err == nil {
		t.Fatal("ReadInput() error = nil, want invalid-column error")
	}
	if !strings.Contains(err.Error(), "favorite_color") {
		t.Errorf("error %q does not name the invalid column", err)
	}
}

func TestReadInputRangeColumns(t *testing.T) {
	data := strings.Join([]string{
		"origin_min,origin_max,origin_count,origin_arrange,destination,mode,departure_time_min,departure_time_max,departure_time_delta",
		"0;0,1;1,2;2,grid,B,driving,2026-03-01T08:00,2026-03-01T09:00,30",
	}, "\n")

	in, err := ReadInput(strings.NewReader(data))
	if err != nil {
		t.Fatalf("ReadInput() error = %v", err)
	}
	if len(in.Rows) != 1 {
		t.Fatalf("got %d rows, want 1", len(in.Rows))
	}
	if in.Rows[0]["origin_arrange"] != "grid" {
		t.Errorf("rows[0][origin_arrange] = %q, want %q", in.Rows[0]["origin_arrange"], "grid")
	}
}

func TestReadInputShortRecord(t *testing.T) {
	data := "origin,destination,mode\nA,B\n"

	in, err := ReadInput(strings.NewReader(data))
	if err != nil {
		t.Fatalf("ReadInput() error = %v", err)
	}
	if len(in.Rows) != 1 {
		t.Fatalf("got %d rows, want 1", len(in.Rows))
	}
	if _, ok := in.Rows[0]["mode"]; ok {
		t.Errorf("rows[0][mode] is populated, want missing trailing cell left unset")
	}
}
