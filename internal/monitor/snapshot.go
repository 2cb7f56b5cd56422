package monitor

import (
	"time"

	"github.com/fyrsmithlabs/guild/internal/assembler"
	"github.com/fyrsmithlabs/guild/internal/compression"
)

// ModuleStat is the outcome of compressing one module.
type ModuleStat struct {
	Key            string
	Level          compression.Level
	Score          int
	Quality        compression.Quality
	Valid          bool
	OriginalSize   int
	CompressedSize int
	Redactions     int
	Unresolved     int
}

// Snapshot summarizes one assembly run.
type Snapshot struct {
	RunID     string
	Revision  string
	Time      time.Time
	Documents int
	// Missing counts template placeholders with no matching module.
	Missing int
	Modules []ModuleStat
}

// SnapshotFromRun summarizes run as of at.
func SnapshotFromRun(run *assembler.Run, at time.Time) Snapshot {
	s := Snapshot{Time: at}
	if run == nil {
		return s
	}
	s.RunID = run.ID
	s.Revision = run.Revision
	s.Documents = len(run.Documents)
	for _, doc := range run.Documents {
		s.Missing += len(doc.Missing)
	}
	for _, c := range run.Modules {
		if c == nil || c.Result == nil || c.Result.Report == nil {
			continue
		}
		s.Modules = append(s.Modules, ModuleStat{
			Key:            c.Key,
			Level:          c.Result.Level,
			Score:          c.Result.Report.Score,
			Quality:        c.Result.Report.Quality,
			Valid:          c.Result.Report.Valid,
			OriginalSize:   c.Result.OriginalSize,
			CompressedSize: c.Result.CompressedSize,
			Redactions:     c.Redactions,
			Unresolved:     len(c.Unresolved),
		})
	}
	return s
}

// AverageScore is the mean preservation score, 0 without modules.
func (s Snapshot) AverageScore() float64 {
	if len(s.Modules) == 0 {
		return 0
	}
	total := 0
	for _, m := range s.Modules {
		total += m.Score
	}
	return float64(total) / float64(len(s.Modules))
}

// Sizes returns the total original and compressed sizes.
func (s Snapshot) Sizes() (original, compressed int) {
	for _, m := range s.Modules {
		original += m.OriginalSize
		compressed += m.CompressedSize
	}
	return original, compressed
}

// Reduction is the fraction of original size removed by compression. It is
// negative when summaries outgrow their input.
func (s Snapshot) Reduction() float64 {
	original, compressed := s.Sizes()
	if original == 0 {
		return 0
	}
	return 1 - float64(compressed)/float64(original)
}

// Invalid counts modules whose preservation report is not valid.
func (s Snapshot) Invalid() int {
	n := 0
	for _, m := range s.Modules {
		if !m.Valid {
			n++
		}
	}
	return n
}

// Redactions totals the secrets redacted across modules.
func (s Snapshot) Redactions() int {
	n := 0
	for _, m := range s.Modules {
		n += m.Redactions
	}
	return n
}
