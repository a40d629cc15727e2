package store

import (
	"archive/tar"
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ============================================================================
// Test Helper Functions
// ============================================================================

func newTestStore(t *testing.T, ext string) *Store {
	t.Helper()
	st, err := New(filepath.Join(t.TempDir(), "root"), ext)
	require.NoError(t, err)
	return st
}

func writeFile(t *testing.T, st *Store, rel, content string) string {
	t.Helper()
	path := filepath.Join(st.Root(), rel)
	require.NoError(t, st.Save(path, strings.NewReader(content), int64(len(content))))
	return path
}

// ============================================================================
// Save / Open / Remove Tests
// ============================================================================

func TestSave(t *testing.T) {
	t.Run("RoundTrip", func(t *testing.T) {
		st := newTestStore(t, ".c")
		path := writeFile(t, st, "docs/main.c", "int main(void) { return 0; }\n")

		f, size, err := st.Open(path)
		require.NoError(t, err)
		defer f.Close()

		got, err := io.ReadAll(f)
		require.NoError(t, err)
		assert.Equal(t, "int main(void) { return 0; }\n", string(got))
		assert.Equal(t, int64(len(got)), size)
	})

	t.Run("EmptyFile", func(t *testing.T) {
		st := newTestStore(t, ".c")
		path := writeFile(t, st, "empty.c", "")

		f, size, err := st.Open(path)
		require.NoError(t, err)
		f.Close()
		assert.Equal(t, int64(0), size)
	})

	t.Run("CreatesNestedDirectories", func(t *testing.T) {
		st := newTestStore(t, ".txt")
		writeFile(t, st, "a/b/c/deep.txt", "x")
		assert.True(t, st.DirExists(filepath.Join(st.Root(), "a", "b", "c")))
	})

	t.Run("ShortBodyLeavesNoPartialFile", func(t *testing.T) {
		st := newTestStore(t, ".pdf")
		path := filepath.Join(st.Root(), "broken.pdf")

		err := st.Save(path, strings.NewReader("only half"), 100)
		require.Error(t, err)

		_, statErr := os.Stat(path)
		assert.True(t, os.IsNotExist(statErr))
	})

	t.Run("OverwritesExisting", func(t *testing.T) {
		st := newTestStore(t, ".txt")
		path := writeFile(t, st, "note.txt", "old")
		writeFile(t, st, "note.txt", "newer")

		f, size, err := st.Open(path)
		require.NoError(t, err)
		defer f.Close()
		assert.Equal(t, int64(5), size)
	})
}

func TestOpen(t *testing.T) {
	t.Run("MissingIsErrNotExist", func(t *testing.T) {
		st := newTestStore(t, ".c")
		_, _, err := st.Open(filepath.Join(st.Root(), "absent.c"))
		assert.ErrorIs(t, err, ErrNotExist)
	})

	t.Run("DirectoryIsErrNotExist", func(t *testing.T) {
		st := newTestStore(t, ".c")
		_, _, err := st.Open(st.Root())
		assert.ErrorIs(t, err, ErrNotExist)
	})
}

func TestRemove(t *testing.T) {
	t.Run("RemovesFile", func(t *testing.T) {
		st := newTestStore(t, ".c")
		path := writeFile(t, st, "gone.c", "x")

		require.NoError(t, st.Remove(path))
		_, _, err := st.Open(path)
		assert.ErrorIs(t, err, ErrNotExist)
	})

	t.Run("MissingIsErrNotExist", func(t *testing.T) {
		st := newTestStore(t, ".c")
		err := st.Remove(filepath.Join(st.Root(), "never.c"))
		assert.ErrorIs(t, err, ErrNotExist)
	})
}

// ============================================================================
// Listing Tests
// ============================================================================

func TestList(t *testing.T) {
	t.Run("SortedMatchingFilesOnly", func(t *testing.T) {
		st := newTestStore(t, ".txt")
		writeFile(t, st, "docs/zeta.txt", "z")
		writeFile(t, st, "docs/alpha.txt", "a")
		writeFile(t, st, "docs/skip.pdf", "p")
		writeFile(t, st, "docs/sub/nested.txt", "n")

		names, err := st.List(filepath.Join(st.Root(), "docs"))
		require.NoError(t, err)
		assert.Equal(t, []string{"alpha.txt", "zeta.txt"}, names)
	})

	t.Run("EmptyDirectory", func(t *testing.T) {
		st := newTestStore(t, ".txt")
		names, err := st.List(st.Root())
		require.NoError(t, err)
		assert.Empty(t, names)
	})

	t.Run("MissingDirectoryIsErrNotExist", func(t *testing.T) {
		st := newTestStore(t, ".txt")
		_, err := st.List(filepath.Join(st.Root(), "nope"))
		assert.ErrorIs(t, err, ErrNotExist)
	})
}

// ============================================================================
// Bundle Tests
// ============================================================================

func TestBuildBundle(t *testing.T) {
	t.Run("ArchivesMatchingTree", func(t *testing.T) {
		st := newTestStore(t, ".c")
		writeFile(t, st, "main.c", "int main;")
		writeFile(t, st, "lib/util.c", "void util;")
		writeFile(t, st, "lib/readme.txt", "ignored")

		bundle, err := st.BuildBundle()
		require.NoError(t, err)
		defer bundle.Remove()

		f, err := os.Open(bundle.Path)
		require.NoError(t, err)
		defer f.Close()

		entries := map[string]string{}
		tr := tar.NewReader(f)
		for {
			hdr, err := tr.Next()
			if err == io.EOF {
				break
			}
			require.NoError(t, err)
			var content bytes.Buffer
			_, err = io.Copy(&content, tr)
			require.NoError(t, err)
			entries[hdr.Name] = content.String()
		}

		assert.Equal(t, map[string]string{
			"lib/util.c": "void util;",
			"main.c":     "int main;",
		}, entries)
	})

	t.Run("EmptyTreeYieldsEmptyArchive", func(t *testing.T) {
		st := newTestStore(t, ".zip")

		bundle, err := st.BuildBundle()
		require.NoError(t, err)
		defer bundle.Remove()

		f, err := os.Open(bundle.Path)
		require.NoError(t, err)
		defer f.Close()

		_, err = tar.NewReader(f).Next()
		assert.Equal(t, io.EOF, err)
	})

	t.Run("RemoveDeletesBundle", func(t *testing.T) {
		st := newTestStore(t, ".c")
		writeFile(t, st, "a.c", "x")

		bundle, err := st.BuildBundle()
		require.NoError(t, err)
		bundle.Remove()

		_, statErr := os.Stat(bundle.Path)
		assert.True(t, os.IsNotExist(statErr))
	})
}
