package progress

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
)

// Reporter receives per-entry progress from archive operations
type Reporter interface {
	// Start begins tracking a new entry
	Start(entry string, totalBytes int64)
	// Update reports how many bytes of the current entry are done
	Update(bytesDone int64)
	// Complete marks the current entry as done
	Complete()
	// Error reports a failure on the current entry
	Error(err error)
	// SetTotal sets the number of entries and bytes to process
	SetTotal(totalEntries int, totalBytes int64)
	// OverallProgress reports progress over the whole operation
	OverallProgress(entriesDone int, bytesDone int64)
}

// Callback is a function that receives progress updates
type Callback func(update Update)

// Update represents a progress update
type Update struct {
	Type           UpdateType
	Entry          string
	CurrentBytes   int64
	CurrentTotal   int64
	EntriesDone    int
	EntriesTotal   int
	BytesDone      int64
	BytesTotal     int64
	BytesPerSecond float64
	Error          error
}

// UpdateType indicates the type of progress update
type UpdateType int

const (
	UpdateStart UpdateType = iota
	UpdateProgress
	UpdateComplete
	UpdateError
	UpdateOverall
)

// CallbackReporter implements Reporter with a callback function. The
// callback runs outside the reporter's lock and may call back into it.
type CallbackReporter struct {
	callback     Callback
	mu           sync.Mutex
	entry        string
	currentTotal int64
	currentBytes int64
	entriesTotal int
	bytesTotal   int64
	entriesDone  int
	bytesDone    int64
	startTime    time.Time
}

// NewCallbackReporter creates a new CallbackReporter
func NewCallbackReporter(callback Callback) *CallbackReporter {
	return &CallbackReporter{
		callback: callback,
	}
}

// snapshot builds an update from the current counters; r.mu must be held
func (r *CallbackReporter) snapshot(typ UpdateType) Update {
	return Update{
		Type:         typ,
		Entry:        r.entry,
		CurrentBytes: r.currentBytes,
		CurrentTotal: r.currentTotal,
		EntriesDone:  r.entriesDone,
		EntriesTotal: r.entriesTotal,
		BytesDone:    r.bytesDone,
		BytesTotal:   r.bytesTotal,
	}
}

func (r *CallbackReporter) emit(u Update) {
	if r.callback != nil {
		r.callback(u)
	}
}

// SetTotal sets the number of entries and bytes to process
func (r *CallbackReporter) SetTotal(totalEntries int, totalBytes int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entriesTotal = totalEntries
	r.bytesTotal = totalBytes
}

// Start begins tracking a new entry
func (r *CallbackReporter) Start(entry string, totalBytes int64) {
	r.mu.Lock()
	r.entry = entry
	r.currentTotal = totalBytes
	r.currentBytes = 0
	r.startTime = time.Now()
	u := r.snapshot(UpdateStart)
	r.mu.Unlock()

	r.emit(u)
}

// Update reports progress on the current entry
func (r *CallbackReporter) Update(bytesDone int64) {
	r.mu.Lock()
	r.currentBytes = bytesDone
	u := r.snapshot(UpdateProgress)
	u.BytesDone += bytesDone
	if elapsed := time.Since(r.startTime).Seconds(); elapsed > 0 {
		u.BytesPerSecond = float64(bytesDone) / elapsed
	}
	r.mu.Unlock()

	r.emit(u)
}

// Complete marks the current entry as done
func (r *CallbackReporter) Complete() {
	r.mu.Lock()
	r.entriesDone++
	r.bytesDone += r.currentTotal
	r.currentBytes = r.currentTotal
	u := r.snapshot(UpdateComplete)
	r.mu.Unlock()

	r.emit(u)
}

// Error reports a failure on the current entry
func (r *CallbackReporter) Error(err error) {
	r.mu.Lock()
	u := r.snapshot(UpdateError)
	u.CurrentBytes, u.CurrentTotal = 0, 0
	u.Error = err
	r.mu.Unlock()

	r.emit(u)
}

// OverallProgress reports progress over the whole operation
func (r *CallbackReporter) OverallProgress(entriesDone int, bytesDone int64) {
	r.mu.Lock()
	u := Update{
		Type:         UpdateOverall,
		EntriesDone:  entriesDone,
		EntriesTotal: r.entriesTotal,
		BytesDone:    bytesDone,
		BytesTotal:   r.bytesTotal,
	}
	r.mu.Unlock()

	r.emit(u)
}

// NewTextReporter returns a reporter that writes one line per finished
// entry, and per failure, to w
func NewTextReporter(w io.Writer) *CallbackReporter {
	return NewCallbackReporter(func(u Update) {
		switch u.Type {
		case UpdateComplete:
			fmt.Fprintf(w, "%s %3d/%-3d %s (%s)\n",
				FormatProgress(u.BytesDone, u.BytesTotal, 20), u.EntriesDone, u.EntriesTotal,
				u.Entry, FormatBytes(u.CurrentTotal))
		case UpdateError:
			fmt.Fprintf(w, "error: %s: %v\n", u.Entry, u.Error)
		}
	})
}

// ProgressReader wraps an io.Reader and reports the bytes read so far
type ProgressReader struct {
	reader   io.Reader
	reporter Reporter
	read     int64
}

// NewProgressReader creates a new progress-tracking reader
func NewProgressReader(r io.Reader, reporter Reporter) *ProgressReader {
	return &ProgressReader{
		reader:   r,
		reporter: reporter,
	}
}

// Read implements io.Reader
func (pr *ProgressReader) Read(p []byte) (n int, err error) {
	n, err = pr.reader.Read(p)
	if n > 0 {
		pr.read += int64(n)
		if pr.reporter != nil {
			pr.reporter.Update(pr.read)
		}
	}
	return n, err
}

// NullReporter is a no-op reporter
type NullReporter struct{}

func (NullReporter) Start(entry string, totalBytes int64)             {}
func (NullReporter) Update(bytesDone int64)                           {}
func (NullReporter) Complete()                                        {}
func (NullReporter) Error(err error)                                  {}
func (NullReporter) SetTotal(totalEntries int, totalBytes int64)      {}
func (NullReporter) OverallProgress(entriesDone int, bytesDone int64) {}

// FormatBytes formats bytes into human-readable string
func FormatBytes(bytes int64) string {
	const (
		KB = 1024
		MB = KB * 1024
		GB = MB * 1024
	)

	switch {
	case bytes >= GB:
		return fmt.Sprintf("%.1f GB", float64(bytes)/GB)
	case bytes >= MB:
		return fmt.Sprintf("%.1f MB", float64(bytes)/MB)
	case bytes >= KB:
		return fmt.Sprintf("%.1f KB", float64(bytes)/KB)
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}

// FormatSpeed formats bytes per second into human-readable string
func FormatSpeed(bytesPerSecond float64) string {
	return FormatBytes(int64(bytesPerSecond)) + "/s"
}

// FormatProgress returns a progress bar string
func FormatProgress(current, total int64, width int) string {
	if total == 0 {
		return ""
	}

	percent := float64(current) / float64(total)
	filled := min(int(percent*float64(width)), width)

	var bar strings.Builder
	for i := 0; i < width; i++ {
		switch {
		case i < filled:
			bar.WriteByte('=')
		case i == filled:
			bar.WriteByte('>')
		default:
			bar.WriteByte(' ')
		}
	}

	return fmt.Sprintf("[%s] %5.1f%%", bar.String(), percent*100)
}
