package pointfile_test

import (
	"bytes"
	"math"
	"strings"
	"testing"

	"github.com/samirrijal/halfway/internal/pkg/pointfile"
)

func TestParseCSV_WithHeader(t *testing.T) {
	input := "label,lat,lon\nCasco Viejo,43.2569,-2.9236\nSan Mames,43.2641,-2.9494\n"

	records, skipped, err := pointfile.ParseCSV(strings.NewReader(input))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if skipped != 0 {
		t.Errorf("expected 0 skipped rows, got %d", skipped)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0].Label != "Casco Viejo" || records[0].Lat != 43.2569 || records[0].Lon != -2.9236 {
		t.Errorf("unexpected first record: %+v", records[0])
	}
	if records[1].Label != "San Mames" {
		t.Errorf("expected label San Mames, got %q", records[1].Label)
	}
}

func TestParseCSV_HeaderAliasesAndOrder(t *testing.T) {
	input := "latitude,longitude,name\n40.4168,-3.7038,Sol\n"

	records, _, err := pointfile.ParseCSV(strings.NewReader(input))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	if records[0].Label != "Sol" || records[0].Lat != 40.4168 || records[0].Lon != -3.7038 {
		t.Errorf("unexpected record: %+v", records[0])
	}
}

func TestParseCSV_Positional(t *testing.T) {
	input := "Guggenheim,43.2687,-2.9340\nAzkuna,43.2605,-2.9367\n"

	records, skipped, err := pointfile.ParseCSV(strings.NewReader(input))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if skipped != 0 {
		t.Errorf("expected 0 skipped rows, got %d", skipped)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0].Label != "Guggenheim" || records[0].Lat != 43.2687 {
		t.Errorf("unexpected first record: %+v", records[0])
	}
}

func TestParseCSV_BareCoordinates(t *testing.T) {
	input := "43.2687,-2.9340\n43.2605,-2.9367\n"

	records, _, err := pointfile.ParseCSV(strings.NewReader(input))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0].Label != "" {
		t.Errorf("expected empty label, got %q", records[0].Label)
	}
	if records[1].Lat != 43.2605 || records[1].Lon != -2.9367 {
		t.Errorf("unexpected second record: %+v", records[1])
	}
}

func TestParseCSV_SkipsBadRows(t *testing.T) {
	input := strings.Join([]string{
		"label,lat,lon",
		"ok,43.26,-2.93",
		"garbage,not-a-number,-2.93",
		"out-of-range,91.5,-2.93",
		"wrapped,43.26,181.0",
		"ok2,40.41,-3.70",
	}, "\n")

	records, skipped, err := pointfile.ParseCSV(strings.NewReader(input))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if skipped != 3 {
		t.Errorf("expected 3 skipped rows, got %d", skipped)
	}
	if records[1].Label != "ok2" {
		t.Errorf("expected ok2 as second record, got %q", records[1].Label)
	}
}

func TestParseCSV_DecimalComma(t *testing.T) {
	input := "label,lat,lon\nkiosk,\"43,2630\",\"-2,9350\"\n"

	records, _, err := pointfile.ParseCSV(strings.NewReader(input))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	if records[0].Lat != 43.2630 || records[0].Lon != -2.9350 {
		t.Errorf("expected (43.2630, -2.9350), got (%v, %v)", records[0].Lat, records[0].Lon)
	}
}

func TestParseCSV_BOMHeader(t *testing.T) {
	input := "\xef\xbb\xbflabel,lat,lon\nspot,10.5,20.5\n"

	records, _, err := pointfile.ParseCSV(strings.NewReader(input))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 1 || records[0].Label != "spot" {
		t.Fatalf("expected 1 record labeled spot, got %+v", records)
	}
}

func TestParseCSV_HeaderWithoutCoordinates(t *testing.T) {
	input := "foo,bar,baz\na,b,c\n"

	if _, _, err := pointfile.ParseCSV(strings.NewReader(input)); err == nil {
		t.Fatal("expected error for header without coordinate columns")
	}
}

func TestWriteXLSX_RoundTrip(t *testing.T) {
	in := []pointfile.Record{
		{Label: "Casco Viejo", Lat: 43.2569, Lon: -2.9236},
		{Label: "San Mames", Lat: 43.2641, Lon: -2.9494},
		{Label: "Zorrotzaurre", Lat: 43.2766, Lon: -2.9664},
	}

	var buf bytes.Buffer
	if err := pointfile.WriteXLSX(&buf, "Points", in); err != nil {
		t.Fatalf("write: %v", err)
	}

	out, skipped, err := pointfile.ParseXLSX(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if skipped != 0 {
		t.Errorf("expected 0 skipped rows, got %d", skipped)
	}
	if len(out) != len(in) {
		t.Fatalf("expected %d records, got %d", len(in), len(out))
	}
	for i := range in {
		if out[i].Label != in[i].Label {
			t.Errorf("record %d: expected label %q, got %q", i, in[i].Label, out[i].Label)
		}
		if math.Abs(out[i].Lat-in[i].Lat) > 1e-9 || math.Abs(out[i].Lon-in[i].Lon) > 1e-9 {
			t.Errorf("record %d: expected (%v, %v), got (%v, %v)",
				i, in[i].Lat, in[i].Lon, out[i].Lat, out[i].Lon)
		}
	}
}

func TestParse_DispatchByExtension(t *testing.T) {
	var buf bytes.Buffer
	err := pointfile.WriteXLSX(&buf, "Points", []pointfile.Record{{Label: "a", Lat: 1, Lon: 2}})
	if err != nil {
		t.Fatalf("write: %v", err)
	}

	records, _, err := pointfile.Parse("upload.XLSX", buf.Bytes())
	if err != nil {
		t.Fatalf("xlsx dispatch: %v", err)
	}
	if len(records) != 1 || records[0].Label != "a" {
		t.Fatalf("unexpected xlsx records: %+v", records)
	}

	records, _, err = pointfile.Parse("upload.csv", []byte("b,3,4\n"))
	if err != nil {
		t.Fatalf("csv dispatch: %v", err)
	}
	if len(records) != 1 || records[0].Label != "b" {
		t.Fatalf("unexpected csv records: %+v", records)
	}
}

func TestCoords(t *testing.T) {
	records := []pointfile.Record{
		{Lat: 1.5, Lon: 2.5},
		{Lat: -3, Lon: 4},
	}

	coords := pointfile.Coords(records)
	want := []float64{1.5, 2.5, -3, 4}
	if len(coords) != len(want) {
		t.Fatalf("expected %d floats, got %d", len(want), len(coords))
	}
	for i := range want {
		if coords[i] != want[i] {
			t.Errorf("position %d: expected %v, got %v", i, want[i], coords[i])
		}
	}
}
