package log

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"

	"areastate.ai/internal/areastate"
)

// Entry is one journal line. Seq orders entries across the per-instance files
// of one journal run.
type Entry struct {
	Seq uint64 `json:"seq"`
	areastate.Event
}

type stream struct {
	day      string
	instance areastate.InstanceKey
}

// Journal appends discovery events to one zstd JSONL stream per instance and
// UTC day: <dir>/events-YYYYMMDD-<instance>.jsonl.zst. Only the stream of the
// instance that last produced an event is open. Coming back to an older
// instance appends a new zstd frame to its file.
type Journal struct {
	dir string
	now func() time.Time

	mu  sync.Mutex
	seq uint64
	cur stream
	f   *os.File
	enc *zstd.Encoder
	w   *bufio.Writer
}

func NewJournal(dir string) *Journal {
	return &Journal{dir: dir, now: time.Now}
}

// WriteEvent stamps ev with the next sequence number and appends it to the
// stream of ev.Instance.
func (j *Journal) WriteEvent(ev areastate.Event) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	at := ev.At
	if at.IsZero() {
		at = j.now()
	}
	want := stream{day: at.UTC().Format("20060102"), instance: ev.Instance}
	if j.w == nil || want != j.cur {
		if err := j.switchLocked(want); err != nil {
			return err
		}
	}

	j.seq++
	b, err := json.Marshal(Entry{Seq: j.seq, Event: ev})
	if err != nil {
		return err
	}
	if _, err := j.w.Write(b); err != nil {
		return err
	}
	if err := j.w.WriteByte('\n'); err != nil {
		return err
	}
	return j.w.Flush()
}

func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.closeLocked()
}

func (j *Journal) switchLocked(s stream) error {
	if err := j.closeLocked(); err != nil {
		return err
	}
	if err := os.MkdirAll(j.dir, 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(filepath.Join(j.dir, fileName(s)), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return err
	}
	j.f, j.enc, j.w, j.cur = f, enc, bufio.NewWriterSize(enc, 32*1024), s
	return nil
}

func (j *Journal) closeLocked() error {
	if j.w == nil {
		return nil
	}
	flushErr := j.w.Flush()
	encErr := j.enc.Close()
	fileErr := j.f.Close()
	j.f, j.enc, j.w, j.cur = nil, nil, nil, stream{}
	for _, err := range []error{flushErr, encErr, fileErr} {
		if err != nil {
			return err
		}
	}
	return nil
}

func fileName(s stream) string {
	return fmt.Sprintf("events-%s-%08x.jsonl.zst", s.day, uint32(s.instance))
}
