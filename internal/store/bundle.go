package store

import (
	"archive/tar"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Bundle is a transient on-demand archive of every file with the shard's
// extension under the storage root. It is created fresh per request and
// must be removed after streaming, whatever the stream outcome.
type Bundle struct {
	Path string
	Size int64
}

// Remove deletes the bundle file.
func (b *Bundle) Remove() {
	os.Remove(b.Path)
}

// BuildBundle walks the storage root, archives every matching regular
// file into a temporary tar under the root, and returns it. Entry names
// are root-relative and sorted so identical trees produce identical
// archives.
func (s *Store) BuildBundle() (*Bundle, error) {
	var members []string
	err := filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type().IsRegular() && strings.HasSuffix(d.Name(), s.ext) {
			members = append(members, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", s.root, err)
	}
	sort.Strings(members)

	tmp, err := os.CreateTemp(s.root, "bundle-*.tar")
	if err != nil {
		return nil, fmt.Errorf("create bundle file: %w", err)
	}

	if err := s.writeTar(tmp, members); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return nil, err
	}

	info, err := tmp.Stat()
	if err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return nil, fmt.Errorf("stat bundle: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return nil, fmt.Errorf("close bundle: %w", err)
	}

	return &Bundle{Path: tmp.Name(), Size: info.Size()}, nil
}

func (s *Store) writeTar(w io.Writer, members []string) error {
	tw := tar.NewWriter(w)

	for _, path := range members {
		rel, err := filepath.Rel(s.root, path)
		if err != nil {
			return fmt.Errorf("relativize %s: %w", path, err)
		}

		info, err := os.Stat(path)
		if err != nil {
			return fmt.Errorf("stat %s: %w", path, err)
		}
		hdr, err := tar.FileInfoHeader(info, "")
		if err != nil {
			return fmt.Errorf("tar header for %s: %w", path, err)
		}
		hdr.Name = filepath.ToSlash(rel)

		if err := tw.WriteHeader(hdr); err != nil {
			return fmt.Errorf("write tar header for %s: %w", path, err)
		}

		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("open %s: %w", path, err)
		}
		_, err = io.Copy(tw, f)
		f.Close()
		if err != nil {
			return fmt.Errorf("archive %s: %w", path, err)
		}
	}

	if err := tw.Close(); err != nil {
		return fmt.Errorf("finalize bundle: %w", err)
	}
	return nil
}
