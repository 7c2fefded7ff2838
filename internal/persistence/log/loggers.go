package log

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"

	"crystalmaster.io/internal/sim/session"
)

// JSONLZstdWriter appends JSON lines to hourly zstd-compressed files named
// <prefix>-<yyyy-mm-dd-hh>.jsonl.zst under baseDir.
type JSONLZstdWriter struct {
	baseDir string
	prefix  string
	now     func() time.Time

	mu      sync.Mutex
	curHour string
	f       *os.File
	enc     *zstd.Encoder
	w       *bufio.Writer
}

func NewJSONLZstdWriter(baseDir, prefix string) *JSONLZstdWriter {
	return &JSONLZstdWriter{
		baseDir: baseDir,
		prefix:  prefix,
		now:     time.Now,
	}
}

func (w *JSONLZstdWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closeLocked()
}

func (w *JSONLZstdWriter) Write(v any) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	hour := w.now().UTC().Format("2006-01-02-15")
	if hour != w.curHour {
		if err := w.rotateLocked(hour); err != nil {
			return err
		}
	}

	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if _, err := w.w.Write(b); err != nil {
		return err
	}
	return w.w.WriteByte('\n')
}

// Flush pushes buffered lines through the encoder without closing the frame.
func (w *JSONLZstdWriter) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.w == nil {
		return nil
	}
	if err := w.w.Flush(); err != nil {
		return err
	}
	return w.enc.Flush()
}

func (w *JSONLZstdWriter) rotateLocked(hour string) error {
	if err := w.closeLocked(); err != nil {
		return err
	}
	if err := os.MkdirAll(w.baseDir, 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(w.pathForHour(hour), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return err
	}
	w.f = f
	w.enc = enc
	w.w = bufio.NewWriterSize(enc, 128*1024)
	w.curHour = hour
	return nil
}

func (w *JSONLZstdWriter) closeLocked() error {
	var err1 error
	if w.w != nil {
		err1 = w.w.Flush()
	}
	if w.enc != nil {
		if err := w.enc.Close(); err1 == nil {
			err1 = err
		}
		w.enc = nil
	}
	if w.f != nil {
		if err := w.f.Close(); err1 == nil {
			err1 = err
		}
		w.f = nil
	}
	w.w = nil
	w.curHour = ""
	return err1
}

func (w *JSONLZstdWriter) pathForHour(hour string) string {
	return filepath.Join(w.baseDir, fmt.Sprintf("%s-%s.jsonl.zst", w.prefix, hour))
}

// record is one line of a tick log: either the run header or a tick.
type record struct {
	Header *session.RunHeader    `json:"header,omitempty"`
	Tick   *session.TickLogEntry `json:"tick,omitempty"`
}

// TickLogger writes a run's header and ticks under <runDir>/ticks.
type TickLogger struct{ w *JSONLZstdWriter }

func NewTickLogger(runDir string) *TickLogger {
	return &TickLogger{w: NewJSONLZstdWriter(filepath.Join(runDir, "ticks"), "ticks")}
}

func (l *TickLogger) WriteHeader(h session.RunHeader) error {
	if err := l.w.Write(record{Header: &h}); err != nil {
		return err
	}
	return l.w.Flush()
}

func (l *TickLogger) WriteTick(e session.TickLogEntry) error { return l.w.Write(record{Tick: &e}) }
func (l *TickLogger) Close() error                           { return l.w.Close() }

var ErrNoHeader = errors.New("tick log has no header")

// TickReader streams a run's tick log back in file order.
type TickReader struct {
	files  []string
	idx    int
	f      *os.File
	dec    *zstd.Decoder
	sc     *bufio.Scanner
	header *session.RunHeader
}

// OpenTickLog lists the run's tick files and reads its header.
func OpenTickLog(runDir string) (*TickReader, error) {
	files, err := filepath.Glob(filepath.Join(runDir, "ticks", "ticks-*.jsonl.zst"))
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no tick logs in %s", runDir)
	}
	sort.Strings(files)
	r := &TickReader{files: files}
	rec, err := r.nextRecord()
	if err != nil {
		_ = r.Close()
		if errors.Is(err, io.EOF) {
			return nil, ErrNoHeader
		}
		return nil, err
	}
	if rec.Header == nil {
		_ = r.Close()
		return nil, ErrNoHeader
	}
	r.header = rec.Header
	return r, nil
}

func (r *TickReader) Header() session.RunHeader { return *r.header }

// Next returns the next tick entry, or io.EOF after the last one.
func (r *TickReader) Next() (session.TickLogEntry, error) {
	for {
		rec, err := r.nextRecord()
		if err != nil {
			return session.TickLogEntry{}, err
		}
		if rec.Tick != nil {
			return *rec.Tick, nil
		}
	}
}

func (r *TickReader) nextRecord() (record, error) {
	for {
		if r.sc == nil {
			if r.idx >= len(r.files) {
				return record{}, io.EOF
			}
			if err := r.openFile(r.files[r.idx]); err != nil {
				return record{}, err
			}
			r.idx++
		}
		if r.sc.Scan() {
			var rec record
			if err := json.Unmarshal(r.sc.Bytes(), &rec); err != nil {
				return record{}, fmt.Errorf("%s: %w", r.files[r.idx-1], err)
			}
			return rec, nil
		}
		if err := r.sc.Err(); err != nil {
			return record{}, fmt.Errorf("%s: %w", r.files[r.idx-1], err)
		}
		r.closeFile()
	}
}

func (r *TickReader) openFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	dec, err := zstd.NewReader(f)
	if err != nil {
		_ = f.Close()
		return err
	}
	sc := bufio.NewScanner(dec)
	sc.Buffer(make([]byte, 64*1024), 16*1024*1024)
	r.f, r.dec, r.sc = f, dec, sc
	return nil
}

func (r *TickReader) closeFile() {
	if r.dec != nil {
		r.dec.Close()
		r.dec = nil
	}
	if r.f != nil {
		_ = r.f.Close()
		r.f = nil
	}
	r.sc = nil
}

func (r *TickReader) Close() error {
	r.closeFile()
	return nil
}
