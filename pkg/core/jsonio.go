package core

import (
	"encoding/json"
	"io"
)

// Report is the JSON shape of a scan result.
type Report struct {
	GameDir     string           `json:"game_dir"`
	Outcome     string           `json:"outcome"`
	Violation   *PolicyViolation `json:"violation,omitempty"`
	Checked     int              `json:"checked"`
	Cached      int              `json:"cached"`
	Skipped     int              `json:"skipped"`
	SkipReasons map[string]int   `json:"skip_reasons,omitempty"`
	DurationMS  int64            `json:"duration_ms"`
}

// NewReport builds a Report from a scan result and its error.
func NewReport(gameDir string, res Result, v *PolicyViolation) Report {
	r := Report{
		GameDir:     gameDir,
		Outcome:     "clean",
		Violation:   v,
		Checked:     res.Checked,
		Cached:      res.Cached,
		Skipped:     res.Skipped,
		SkipReasons: res.SkipReasons,
		DurationMS:  res.Duration.Milliseconds(),
	}
	if v != nil {
		r.Outcome = "violation"
	}
	return r
}

// MarshalReport pretty-prints a report as JSON for humans or pipelines.
func MarshalReport(w io.Writer, r Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

// UnmarshalReport decodes report JSON, useful for ingestion tests.
func UnmarshalReport(r io.Reader) (Report, error) {
	var rep Report
	if err := json.NewDecoder(r).Decode(&rep); err != nil {
		return Report{}, err
	}
	return rep, nil
}
