package source

import (
	"os"
	"path/filepath"
	"testing"
)

func writeCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "marker.csv")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestReadMarkersCSV(t *testing.T) {
	path := writeCSV(t, "category,Biomarkers_en,Biomarkers_cn\n"+
		"Metabolic,Glucose,血糖\n"+
		"Kidney Health,Creatinine,肌酐\n"+
		"Liver,ALT,谷丙转氨酶\n")

	markers, err := ReadMarkers(path, 1)
	if err != nil {
		t.Fatalf("ReadMarkers: %v", err)
	}

	if len(markers) != 3 {
		t.Fatalf("got %d markers, want 3", len(markers))
	}
	if markers[0].Index != 1 || markers[0].NameEN != "Glucose" || markers[0].NameCN != "血糖" || markers[0].Category != "Metabolic" {
		t.Errorf("marker[0] = %+v", markers[0])
	}
	if markers[2].Index != 3 || markers[2].NameEN != "ALT" {
		t.Errorf("marker[2] = %+v", markers[2])
	}
}

func TestReadMarkersStartOffset(t *testing.T) {
	path := writeCSV(t, "category,Biomarkers_en,Biomarkers_cn\n"+
		"A,one,一\n"+
		"B,two,二\n"+
		"C,three,三\n")

	markers, err := ReadMarkers(path, 3)
	if err != nil {
		t.Fatalf("ReadMarkers: %v", err)
	}

	// Rows before start are dropped but surviving rows keep their
	// original indices, so resumed runs never rename outputs.
	if len(markers) != 1 {
		t.Fatalf("got %d markers, want 1", len(markers))
	}
	if markers[0].Index != 3 || markers[0].NameEN != "three" {
		t.Errorf("marker = %+v, want index 3 / three", markers[0])
	}
}

func TestReadMarkersColumnOrderAndCase(t *testing.T) {
	// Column order and header case must not matter.
	path := writeCSV(t, "Biomarkers_CN,CATEGORY,biomarkers_en\n"+
		"血糖,Metabolic,Glucose\n")

	markers, err := ReadMarkers(path, 1)
	if err != nil {
		t.Fatalf("ReadMarkers: %v", err)
	}
	if len(markers) != 1 {
		t.Fatalf("got %d markers, want 1", len(markers))
	}
	m := markers[0]
	if m.NameEN != "Glucose" || m.NameCN != "血糖" || m.Category != "Metabolic" {
		t.Errorf("marker = %+v", m)
	}
}

func TestReadMarkersMissingColumnsYieldEmptyStrings(t *testing.T) {
	path := writeCSV(t, "category,Biomarkers_en\nMetabolic,Glucose\n")

	markers, err := ReadMarkers(path, 1)
	if err != nil {
		t.Fatalf("ReadMarkers: %v", err)
	}
	if len(markers) != 1 {
		t.Fatalf("got %d markers, want 1", len(markers))
	}
	if markers[0].NameCN != "" {
		t.Errorf("missing column must map to empty string, got %q", markers[0].NameCN)
	}
}

func TestReadMarkersBOMHeader(t *testing.T) {
	path := writeCSV(t, "\ufeffcategory,Biomarkers_en,Biomarkers_cn\nA,one,一\n")

	markers, err := ReadMarkers(path, 1)
	if err != nil {
		t.Fatalf("ReadMarkers: %v", err)
	}
	if len(markers) != 1 || markers[0].Category != "A" {
		t.Errorf("BOM-prefixed header not recognized: %+v", markers)
	}
}

func TestReadMarkersRaggedRows(t *testing.T) {
	// Hand-edited files sometimes miss trailing cells; short rows must
	// not error out.
	path := writeCSV(t, "category,Biomarkers_en,Biomarkers_cn\nMetabolic,Glucose\nLiver,ALT,谷丙转氨酶\n")

	markers, err := ReadMarkers(path, 1)
	if err != nil {
		t.Fatalf("ReadMarkers: %v", err)
	}
	if len(markers) != 2 {
		t.Fatalf("got %d markers, want 2", len(markers))
	}
	if markers[0].NameCN != "" || markers[1].NameCN != "谷丙转氨酶" {
		t.Errorf("ragged row handling wrong: %+v", markers)
	}
}

func TestReadMarkersMissingFile(t *testing.T) {
	if _, err := ReadMarkers(filepath.Join(t.TempDir(), "absent.csv"), 1); err == nil {
		t.Error("expected error for missing source file")
	}
}
