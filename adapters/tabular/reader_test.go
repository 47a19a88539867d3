package tabular

import (
	"os"
	"path/filepath"
	"testing"

	"driftwatch/domain/survey"
	"driftwatch/internal/config"
)

func writeTempCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "input.csv")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing temp csv: %v", err)
	}
	return path
}

func TestRead_LongFormatCSV(t *testing.T) {
	path := writeTempCSV(t, `person_id,wave,health_rating,stress_level,region
a,0,4.0,2.1,north
a,1,3.5,2.4,north
b,0,3.0,1.9,south
`)
	cfg := config.DataConfig{
		InputPath:  path,
		IDColumn:   "person_id",
		WaveColumn: "wave",
		GroupCol:   "region",
	}

	f, groups, err := NewReader(cfg).Read()
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}

	if f.Len() != 3 {
		t.Fatalf("expected 3 rows, got %d", f.Len())
	}
	if len(f.Persons()) != 2 {
		t.Errorf("expected 2 persons, got %d", len(f.Persons()))
	}
	if !f.HasColumn("health_rating") || !f.HasColumn("stress_level") {
		t.Errorf("feature columns missing: %v", f.Columns())
	}
	if f.HasColumn("region") {
		t.Error("group column must not become a feature")
	}
	if v, _ := f.Value(1, "health_rating"); v != 3.5 {
		t.Errorf("expected 3.5, got %v", v)
	}
	if len(groups) != 3 || groups[2] != "south" {
		t.Errorf("unexpected group labels: %v", groups)
	}
}

func TestRead_NormalizesMissingCodesAndText(t *testing.T) {
	path := writeTempCSV(t, `person_id,wave,health_rating
a,0,-4
a,1,refused
a,2,2.5
a,3,-1.5
`)
	cfg := config.DataConfig{InputPath: path, IDColumn: "person_id", WaveColumn: "wave"}

	f, _, err := NewReader(cfg).Read()
	if err != nil {
		t.Fatal(err)
	}

	col := f.Column("health_rating")
	if !survey.IsMissing(col[0]) {
		t.Errorf("skip code -4 must read as missing, got %v", col[0])
	}
	if !survey.IsMissing(col[1]) {
		t.Errorf("unparseable text must read as missing, got %v", col[1])
	}
	if col[2] != 2.5 {
		t.Errorf("valid value mangled: %v", col[2])
	}
	// Non-integer negatives are real values, not skip codes.
	if col[3] != -1.5 {
		t.Errorf("-1.5 is a valid value, got %v", col[3])
	}
}

func TestRead_WideFormatReshapesToLong(t *testing.T) {
	// One person row, two wave blocks of five features each.
	path := writeTempCSV(t, `pubid,h0,s0,a0,v30,v40,h1,s1,a1,v31,v41
9001,4,2,3,0,0,3,2.5,3,0,0
`)
	cfg := config.DataConfig{InputPath: path, WideFormat: true, SampleRows: 100}

	f, _, err := NewReader(cfg).Read()
	if err != nil {
		t.Fatal(err)
	}

	// Two complete wave blocks for the single person.
	rows := f.RowsFor("0")
	if len(rows) != 2 {
		t.Fatalf("expected 2 waves for person 0, got %d", len(rows))
	}
	if v, _ := f.Value(rows[1], "health_rating"); v != 3 {
		t.Errorf("expected wave-1 health_rating 3, got %v", v)
	}
	if v, _ := f.Value(rows[1], "stress_level"); v != 2.5 {
		t.Errorf("expected wave-1 stress_level 2.5, got %v", v)
	}
}

func TestRead_MissingFileAndBadHeader(t *testing.T) {
	cfg := config.DataConfig{InputPath: filepath.Join(t.TempDir(), "absent.csv")}
	if _, _, err := NewReader(cfg).Read(); err == nil {
		t.Error("missing file must fail")
	}

	path := writeTempCSV(t, "x,y\n1,2\n")
	cfg = config.DataConfig{InputPath: path, IDColumn: "person_id", WaveColumn: "wave"}
	if _, _, err := NewReader(cfg).Read(); err == nil {
		t.Error("absent id column must fail")
	}
}
