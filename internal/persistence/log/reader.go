package log

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/klauspost/compress/zstd"

	"areastate.ai/internal/areastate"
)

// ListEventFiles returns the journal files in dir sorted by day, then instance.
func ListEventFiles(dir string) ([]string, error) {
	return listFiles(dir, "events-", "")
}

// ListInstanceFiles returns the journal files of one instance, oldest day first.
func ListInstanceFiles(dir string, instance areastate.InstanceKey) ([]string, error) {
	return listFiles(dir, "events-", fmt.Sprintf("-%08x", uint32(instance)))
}

func listFiles(dir, prefix, suffix string) ([]string, error) {
	ents, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(ents))
	for _, e := range ents {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if strings.HasPrefix(name, prefix) && strings.HasSuffix(name, suffix+".jsonl.zst") {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	out := make([]string, 0, len(names))
	for _, name := range names {
		out = append(out, filepath.Join(dir, name))
	}
	return out, nil
}

// ReadEvents decodes every event in path and hands it to fn. fn returning an
// error stops the read.
func ReadEvents(path string, fn func(areastate.Event) error) error {
	return ReadEntries(path, func(e Entry) error { return fn(e.Event) })
}

// ReadEntries is ReadEvents with the journal sequence number attached.
func ReadEntries(path string, fn func(Entry) error) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return err
	}
	defer dec.Close()

	sc := bufio.NewScanner(dec)
	sc.Buffer(make([]byte, 64*1024), 8*1024*1024)

	line := 0
	for sc.Scan() {
		line++
		var e Entry
		if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
			return fmt.Errorf("%s:%d: unmarshal: %w", filepath.Base(path), line, err)
		}
		if err := fn(e); err != nil {
			return err
		}
	}
	return sc.Err()
}
