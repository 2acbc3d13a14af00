package report

import (
	"bytes"
	"strconv"
	"testing"
	"time"

	"go.uber.org/zap"

	"tgdash/pkg/model"
)

func fixedBuilder() *PDFBuilder {
	b := NewPDFBuilder(zap.NewNop())
	b.Now = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }
	return b
}

func TestPaginate(t *testing.T) {
	sections := []section{{Title: "a"}, {Title: "b", Pages: 3}, {Title: "c"}}
	if toc := paginate(sections); toc != 1 {
		t.Fatalf("toc pages=%d", toc)
	}
	want := []int{3, 4, 7}
	for i, s := range sections {
		if s.Page != want[i] {
			t.Fatalf("section %s: page %d, want %d", s.Title, s.Page, want[i])
		}
	}

	many := make([]section, tocEntriesPerPage+1)
	if toc := paginate(many); toc != 2 {
		t.Fatalf("toc pages=%d", toc)
	}
	if many[0].Page != 4 {
		t.Fatalf("first section page=%d", many[0].Page)
	}
}

func TestPDFPlannedPagesMatchDrawnPages(t *testing.T) {
	d := sampleDataset()
	hist := model.RTTHistogram{}
	for i := 0; i < rowsPerPage+5; i++ {
		hist.Bins = append(hist.Bins, model.HistogramBin{Low: float64(i * 100), High: float64(i*100 + 99), Count: uint64(i)})
	}
	d.Stats.RTTHistogram = map[string]model.RTTHistogram{"2": hist}

	doc, sections, err := fixedBuilder().render(d)
	if err != nil {
		t.Fatal(err)
	}
	last := sections[len(sections)-1]
	if last.Title != "Glossary" {
		t.Fatalf("last section %q", last.Title)
	}
	if got := doc.pdf.PageNo(); got != last.Page {
		t.Fatalf("drawn %d pages, plan ends at %d", got, last.Page)
	}

	var histPages int
	for _, s := range sections {
		if s.Title == "Test 1: baseline - RTT Histogram" {
			histPages = s.pageCount()
		}
	}
	if histPages != 2 {
		t.Fatalf("histogram pages=%d", histPages)
	}
}

func TestPDFBuildWritesDocument(t *testing.T) {
	var buf bytes.Buffer
	if err := fixedBuilder().Build(&buf, sampleDataset()); err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")) {
		t.Fatalf("not a pdf")
	}
}

func TestPDFChartSectionsNeedTwoPoints(t *testing.T) {
	d := sampleDataset()
	_, sections, err := fixedBuilder().render(d)
	if err != nil {
		t.Fatal(err)
	}
	titles := make(map[string]bool)
	for _, s := range sections {
		titles[s.Title] = true
	}
	// rate and RTT have two buckets, loss and out of order have none
	for _, want := range []string{"Test 1: baseline - TX/RX Rate (L1)", "Test 1: baseline - Mean RTT"} {
		if !titles[want] {
			t.Fatalf("missing section %q", want)
		}
	}
	if titles["Test 1: baseline - Packet Loss"] {
		t.Fatalf("empty loss chart should be skipped")
	}
}

func TestProfilePDF(t *testing.T) {
	st := model.ProfileStatus{
		Kind: model.ProfileRFC2544,
		Results: model.ProfileResults{
			Throughput:    map[string]float64{"1518": 9900, "64": 7600},
			Latency:       map[string]float64{"64": 1200},
			FrameLossRate: map[string]map[string]float64{"64": {"100": 0.5, "90": 0}},
		},
	}
	sections := profileSections(st.Results)
	if len(sections) != 3 {
		t.Fatalf("sections=%d", len(sections))
	}
	if sections[0].Title != "Throughput" {
		t.Fatalf("first section %q", sections[0].Title)
	}
	rows := frameLossRows(st.Results.FrameLossRate)
	if rows[0][1] != "90 %" || rows[1][1] != "100 %" {
		t.Fatalf("loads not sorted numerically: %v", rows)
	}

	var buf bytes.Buffer
	if err := fixedBuilder().Profile(&buf, st); err != nil {
		t.Fatal(err)
	}
	if buf.Len() == 0 {
		t.Fatal("empty pdf")
	}
}

func TestSizeRowsNumericOrder(t *testing.T) {
	rows := sizeRows(map[string]float64{"1518": 1, "64": 2, "512": 3}, func(v float64) string { return strconv.Itoa(int(v)) })
	if rows[0][0] != "64 bytes" || rows[2][0] != "1518 bytes" {
		t.Fatalf("rows=%v", rows)
	}
}
