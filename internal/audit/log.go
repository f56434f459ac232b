package audit

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/packguard/packguard/internal/engine"
	"github.com/packguard/packguard/internal/types"
)

// FileName is the audit log name inside a game directory.
const FileName = "anticheat_audit.jsonl"

// Record kinds.
const (
	KindScan    = "scan"
	KindMonitor = "monitor"
)

// Record outcomes.
const (
	OutcomeClean     = "clean"
	OutcomeViolation = "violation"
	OutcomeError     = "error"
)

// Record is one line of the audit log: a static scan or a monitor session.
type Record struct {
	Timestamp   time.Time      `json:"timestamp"`
	ID          string         `json:"id"`
	Kind        string         `json:"kind"`
	Root        string         `json:"root"`
	Outcome     string         `json:"outcome"`
	Reason      string         `json:"reason,omitempty"`
	Path        string         `json:"path,omitempty"`
	Checked     int            `json:"checked"`
	Cached      int            `json:"cached"`
	Skipped     int            `json:"skipped"`
	SkipReasons map[string]int `json:"skip_reasons,omitempty"`
	Duration    string         `json:"duration"`
}

type AuditLog struct {
	logPath string
}

// NewAuditLog returns the log kept inside gameDir.
func NewAuditLog(gameDir string) *AuditLog {
	return &AuditLog{logPath: filepath.Join(gameDir, FileName)}
}

// NewAuditLogAt returns a log at an explicit path.
func NewAuditLogAt(path string) *AuditLog {
	return &AuditLog{logPath: path}
}

// Path returns the log file location.
func (a *AuditLog) Path() string { return a.logPath }

// LoadHistory returns all readable records, newest first. Reading stops at
// the first malformed line. A missing log is an empty history.
func (a *AuditLog) LoadHistory() ([]Record, error) {
	f, err := os.Open(a.logPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open audit log: %w", err)
	}
	defer f.Close()

	var records []Record
	decoder := json.NewDecoder(f)
	for decoder.More() {
		var record Record
		if err := decoder.Decode(&record); err != nil {
			var typeErr *json.UnmarshalTypeError
			if errors.As(err, &typeErr) {
				continue
			}
			// a torn or malformed line leaves the decoder unusable
			break
		}
		records = append(records, record)
	}

	for i, j := 0, len(records)-1; i < j; i, j = i+1, j-1 {
		records[i], records[j] = records[j], records[i]
	}
	return records, nil
}

// Log appends record, filling in the timestamp and ID when missing.
func (a *AuditLog) Log(record Record) error {
	if record.Timestamp.IsZero() {
		record.Timestamp = time.Now()
	}
	if record.ID == "" {
		record.ID = RecordID(record.Root, record.Timestamp, record.Reason)
	}

	f, err := os.OpenFile(a.logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("failed to open audit log: %w", err)
	}
	defer f.Close()

	encoder := json.NewEncoder(f)
	if err := encoder.Encode(record); err != nil {
		return fmt.Errorf("failed to write audit record: %w", err)
	}
	return nil
}

// DeleteRecord removes the record at index, counted newest first as returned
// by LoadHistory.
func (a *AuditLog) DeleteRecord(index int) error {
	records, err := a.LoadHistory()
	if err != nil {
		return err
	}

	if index < 0 || index >= len(records) {
		return fmt.Errorf("invalid index: %d", index)
	}

	records = append(records[:index], records[index+1:]...)

	for i, j := 0, len(records)-1; i < j; i, j = i+1, j-1 {
		records[i], records[j] = records[j], records[i]
	}

	f, err := os.Create(a.logPath)
	if err != nil {
		return fmt.Errorf("failed to create audit log: %w", err)
	}
	defer f.Close()

	encoder := json.NewEncoder(f)
	for _, record := range records {
		if err := encoder.Encode(record); err != nil {
			return fmt.Errorf("failed to write audit record: %w", err)
		}
	}
	return nil
}

// RecordID derives a stable identifier from root, timestamp and reason.
func RecordID(root string, ts time.Time, reason string) string {
	d := xxhash.New()
	_, _ = d.WriteString(root)
	_, _ = d.WriteString("\x00")
	_, _ = d.WriteString(strconv.FormatInt(ts.UnixNano(), 10))
	_, _ = d.WriteString("\x00")
	_, _ = d.WriteString(reason)
	return strconv.FormatUint(d.Sum64(), 16)
}

// CreateScanRecord summarizes a static scan. err is the scan's error, if any.
func CreateScanRecord(root string, res engine.Result, err error) Record {
	r := Record{
		Timestamp:   time.Now(),
		Kind:        KindScan,
		Root:        root,
		Checked:     res.Checked,
		Cached:      res.Cached,
		Skipped:     res.Skipped,
		SkipReasons: res.SkipReasons,
		Duration:    res.Duration.String(),
	}
	setOutcome(&r, err)
	return r
}

// CreateMonitorRecord summarizes a monitor session.
func CreateMonitorRecord(root string, duration time.Duration, err error) Record {
	r := Record{
		Timestamp: time.Now(),
		Kind:      KindMonitor,
		Root:      root,
		Duration:  duration.String(),
	}
	setOutcome(&r, err)
	return r
}

func setOutcome(r *Record, err error) {
	var v *types.PolicyViolation
	switch {
	case err == nil:
		r.Outcome = OutcomeClean
	case errors.As(err, &v):
		r.Outcome = OutcomeViolation
		r.Reason = v.Reason
		r.Path = v.Path
	default:
		r.Outcome = OutcomeError
		r.Reason = err.Error()
	}
}
