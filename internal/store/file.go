// Package store persists the message log as a single JSON array on disk.
//
// The file is read once at startup and rewritten once at shutdown. Writes go
// to a temporary sibling first and are renamed into place, so the previous
// content is never partially overwritten.
package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// ErrMalformed is returned by Load when the file exists but does not hold a
// JSON array.
var ErrMalformed = errors.New("store: malformed message file")

// File is a message log persisted at a fixed path.
type File struct {
	path string
}

// NewFile returns a File for path. Nothing is touched on disk until Load or
// Save is called.
func NewFile(path string) *File {
	return &File{path: path}
}

// Path returns the location of the persistence file.
func (f *File) Path() string {
	return f.path
}

// Load reads the persisted messages. A missing file yields an empty log and
// no error. An unreadable or malformed file also yields an empty log, along
// with the error describing why, so callers can report it and carry on.
func (f *File) Load() ([]string, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return []string{}, nil
	}
	if err != nil {
		return []string{}, fmt.Errorf("read %s: %w", f.path, err)
	}

	messages, err := decode(data)
	if err != nil {
		return []string{}, fmt.Errorf("%w: %s: %v", ErrMalformed, f.path, err)
	}
	return messages, nil
}

// Save replaces the file content with messages encoded as a JSON array.
func (f *File) Save(messages []string) error {
	if messages == nil {
		messages = []string{}
	}
	data, err := json.Marshal(messages)
	if err != nil {
		return fmt.Errorf("encode messages: %w", err)
	}

	dir := filepath.Dir(f.path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(f.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file in %s: %w", dir, err)
	}
	tmpName := tmp.Name()
	defer func() {
		// no-op once the rename succeeded
		_ = os.Remove(tmpName)
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write %s: %w", tmpName, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		return fmt.Errorf("replace %s: %w", f.path, err)
	}
	return nil
}

// legacyBuffer is how files written by the earlier Node server encoded binary
// websocket payloads.
type legacyBuffer struct {
	Type string `json:"type"`
	Data []int  `json:"data"`
}

func decode(data []byte) ([]string, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return []string{}, nil
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}

	messages := make([]string, 0, len(raw))
	for _, item := range raw {
		messages = append(messages, decodeItem(item))
	}
	return messages, nil
}

// decodeItem turns one stored value into a log entry. Strings are unquoted,
// legacy buffers are converted back to their bytes, and anything else is
// kept as its JSON text.
func decodeItem(item json.RawMessage) string {
	var s string
	if err := json.Unmarshal(item, &s); err == nil {
		return s
	}

	var buf legacyBuffer
	if err := json.Unmarshal(item, &buf); err == nil && buf.Type == "Buffer" {
		b := make([]byte, len(buf.Data))
		for i, v := range buf.Data {
			b[i] = byte(v)
		}
		return string(b)
	}

	return string(item)
}
