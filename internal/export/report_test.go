package export

import (
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/heimdex/crucible/internal/reconcile"
)

func writeTestPNG(t *testing.T, path string) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, image.NewRGBA(image.Rect(0, 0, 96, 74))); err != nil {
		t.Fatal(err)
	}
}

func TestWriteReport(t *testing.T) {
	dir := t.TempDir()
	thumb := filepath.Join(dir, "thumbnail_11.png")
	writeTestPNG(t, thumb)

	report := Report{
		Header: Header{WorkOrder: "1109", Producer: "Jane", Operator: "John", Job: "Color", Notes: "Fix it"},
		Rows: []Row{
			{
				Range:         reconcile.FrameRange{Location: "/mnt/a", StartFrame: 10, EndFrame: 12, StartTimecode: "00:00:00:10", EndTimecode: "00:00:00:12", SampledFrame: 11},
				ThumbnailPath: thumb,
			},
			{
				Range:         reconcile.FrameRange{Location: "/mnt/b", StartFrame: 15, EndFrame: 16, StartTimecode: "00:00:00:15", EndTimecode: "00:00:00:16", SampledFrame: 15},
				ThumbnailPath: filepath.Join(dir, "missing.png"),
			},
		},
	}

	path := filepath.Join(dir, "review.xlsx")
	if err := WriteReport(path, report); err != nil {
		t.Fatalf("WriteReport() error = %v", err)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("OpenFile() error = %v", err)
	}
	defer f.Close()

	cells := map[string]string{
		"A1": "Workorder",
		"E1": "Notes",
		"A2": "1109",
		"E2": "Fix it",
		"A3": "",
		"A4": "Location",
		"D4": "Thumbnail",
		"A5": "/mnt/a",
		"B5": "10-12",
		"C5": "00:00:00:10-00:00:00:12",
		"B6": "15-16",
	}
	for cell, want := range cells {
		got, err := f.GetCellValue(reportSheet, cell)
		if err != nil {
			t.Fatalf("GetCellValue(%s) error = %v", cell, err)
		}
		if got != want {
			t.Errorf("cell %s = %q, want %q", cell, got, want)
		}
	}

	pics, err := f.GetPictures(reportSheet, "D5")
	if err != nil {
		t.Fatalf("GetPictures(D5) error = %v", err)
	}
	if len(pics) != 1 {
		t.Errorf("D5 has %d pictures, want 1", len(pics))
	}
	pics, err = f.GetPictures(reportSheet, "D6")
	if err != nil {
		t.Fatalf("GetPictures(D6) error = %v", err)
	}
	if len(pics) != 0 {
		t.Errorf("D6 has %d pictures, want 0", len(pics))
	}
}
