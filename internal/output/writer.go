package output

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Stdout is the export path that streams to standard output instead of a file.
const Stdout = "-"

// Encode writes all records to w in the given format.
func Encode(w io.Writer, format Format, records []Record) error {
	f, err := NewFormatter(format, w)
	if err != nil {
		return err
	}
	for i := range records {
		if err := f.Write(&records[i]); err != nil {
			return err
		}
	}
	return f.Flush()
}

// Export encodes records and writes them to path atomically, replacing any
// existing file. Nothing is left behind on failure. Path "-" writes to stdout.
func Export(stdout io.Writer, path string, format Format, records []Record) error {
	var buf bytes.Buffer
	if err := Encode(&buf, format, records); err != nil {
		return fmt.Errorf("encode %s: %w", format, err)
	}
	if path == Stdout {
		_, err := stdout.Write(buf.Bytes())
		return err
	}
	return WriteAtomic(path, buf.Bytes())
}

// WriteAtomic writes data to a temp file in the target directory, syncs it
// and renames it over path.
func WriteAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}

	tmp, err := os.CreateTemp(dir, ".connscan-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	fail := func(err error) error {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return err
	}

	if _, err := tmp.Write(data); err != nil {
		return fail(fmt.Errorf("write temp file: %w", err))
	}
	if err := tmp.Sync(); err != nil {
		return fail(fmt.Errorf("sync temp file: %w", err))
	}
	if err := tmp.Chmod(0o644); err != nil {
		return fail(fmt.Errorf("chmod temp file: %w", err))
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("rename into place: %w", err)
	}
	return nil
}
