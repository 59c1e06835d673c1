package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFile_LoadMissingIsEmpty(t *testing.T) {
	f := NewFile(filepath.Join(t.TempDir(), "messages.json"))

	messages, err := f.Load()

	require.NoError(t, err)
	require.NotNil(t, messages)
	require.Empty(t, messages)
}

func TestFile_RoundTrip(t *testing.T) {
	f := NewFile(filepath.Join(t.TempDir(), "messages.json"))

	require.NoError(t, f.Save([]string{"a", "b", "c"}))
	messages, err := f.Load()

	require.NoError(t, err)
	require.Equal(t, []string{"a", "b", "c"}, messages)
}

func TestFile_RoundTripReplacesInvalidUTF8(t *testing.T) {
	f := NewFile(filepath.Join(t.TempDir(), "messages.json"))
	binary := string([]byte{0xff, 'o', 'k', 0xfe})

	require.NoError(t, f.Save([]string{binary, "héllo"}))
	messages, err := f.Load()

	require.NoError(t, err)
	require.Equal(t, []string{"\uFFFDok\uFFFD", "héllo"}, messages)
}

func TestFile_SaveWritesPlainJSONArray(t *testing.T) {
	path := filepath.Join(t.TempDir(), "messages.json")
	f := NewFile(path)

	require.NoError(t, f.Save([]string{"a", "b"}))
	data, err := os.ReadFile(path)

	require.NoError(t, err)
	require.JSONEq(t, `["a","b"]`, string(data))
}

func TestFile_SaveNilWritesEmptyArray(t *testing.T) {
	path := filepath.Join(t.TempDir(), "messages.json")

	require.NoError(t, NewFile(path).Save(nil))
	data, err := os.ReadFile(path)

	require.NoError(t, err)
	require.Equal(t, "[]", string(data))
}

func TestFile_SaveOverwritesAndLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "messages.json")
	f := NewFile(path)

	require.NoError(t, f.Save([]string{"first", "second", "third"}))
	require.NoError(t, f.Save([]string{"only"}))

	messages, err := f.Load()
	require.NoError(t, err)
	require.Equal(t, []string{"only"}, messages)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

func TestFile_SaveIntoMissingDirectoryFails(t *testing.T) {
	f := NewFile(filepath.Join(t.TempDir(), "nope", "messages.json"))
	require.Error(t, f.Save([]string{"a"}))
}

func TestFile_LoadMalformedIsEmptyWithError(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "garbage", content: "not json"},
		{name: "object", content: `{"a":1}`},
		{name: "truncated", content: `["a","b"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "messages.json")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o600))

			messages, err := NewFile(path).Load()

			require.ErrorIs(t, err, ErrMalformed)
			require.NotNil(t, messages)
			require.Empty(t, messages)
		})
	}
}

func TestFile_LoadBlankFileIsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "messages.json")
	require.NoError(t, os.WriteFile(path, []byte("  \n"), 0o600))

	messages, err := NewFile(path).Load()

	require.NoError(t, err)
	require.Empty(t, messages)
}

func TestFile_LoadMixedValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "messages.json")
	content := `["plain",{"type":"Buffer","data":[104,105]},42,{"content":"x"}]`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	messages, err := NewFile(path).Load()

	require.NoError(t, err)
	require.Equal(t, []string{"plain", "hi", "42", `{"content":"x"}`}, messages)
}
