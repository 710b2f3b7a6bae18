package batch

import (
	"os"
	"path/filepath"

	"github.com/carbocation/pfx"
	"github.com/gocarina/gocsv"
)

type Status string

const (
	StatusProcessed Status = "processed"
	StatusSkipped   Status = "skipped"
	StatusFailed    Status = "failed"
)

// Entry is the outcome for one mask file.
type Entry struct {
	Mask     string `csv:"mask"`
	Original string `csv:"original"`
	Stats    string `csv:"stats"`
	Overlay  string `csv:"overlay"`
	Status   Status `csv:"status"`
	Objects  int    `csv:"objects"`
	Reason   string `csv:"reason"`

	// StatsWritten is true whenever the statistics workbook exists, which can
	// be the case for failed entries whose overlay could not be written.
	StatsWritten bool `csv:"stats_written"`
}

type Report struct {
	Entries []Entry
}

func (r Report) Len() int { return len(r.Entries) }

func (r Report) filter(s Status) []Entry {
	out := make([]Entry, 0)
	for _, e := range r.Entries {
		if e.Status == s {
			out = append(out, e)
		}
	}

	return out
}

func (r Report) Processed() []Entry { return r.filter(StatusProcessed) }

func (r Report) Skipped() []Entry { return r.filter(StatusSkipped) }

func (r Report) Failed() []Entry { return r.filter(StatusFailed) }

// WriteCSV saves one line per entry, with a header. The parent directory is
// created when missing.
func (r Report) WriteCSV(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return pfx.Err(err)
	}

	f, err := os.Create(path)
	if err != nil {
		return pfx.Err(err)
	}

	entries := r.Entries
	if entries == nil {
		entries = []Entry{}
	}

	if err := gocsv.MarshalFile(&entries, f); err != nil {
		f.Close()
		return pfx.Err(err)
	}

	return pfx.Err(f.Close())
}
