// Package shard maps file extensions to the node that owns them and
// handles the virtual-root marker paths clients use (~S1/docs/a.c).
package shard

import (
	"errors"
	"fmt"
	"path"
	"strings"
)

var (
	// ErrUnsupportedType indicates an extension outside the recognized
	// set for the requested operation.
	ErrUnsupportedType = errors.New("unsupported file type")

	// ErrBadMarker indicates a path that does not carry the expected
	// virtual-root marker.
	ErrBadMarker = errors.New("path does not carry expected marker")

	// ErrPathEscape indicates a marker path that resolves outside its
	// shard root.
	ErrPathEscape = errors.New("path escapes shard root")
)

// Shard describes one node of the namespace: the default shard served by
// the gateway itself, or a remote node reached over TCP.
type Shard struct {
	// Name is the node name; the wire marker is "~" + Name.
	Name string

	// Ext is the one file extension this shard owns, with leading dot.
	Ext string

	// Addr is the node's host:port. Empty for the local (gateway) shard.
	Addr string

	// Archivable reports whether this shard answers bundle requests for
	// its extension.
	Archivable bool
}

// Marker returns the virtual-root marker for this shard.
func (s Shard) Marker() string {
	return "~" + s.Name
}

// Local reports whether the shard is served in-process by the gateway.
func (s Shard) Local() bool {
	return s.Addr == ""
}

// Table is the extension-to-shard mapping: a pure function of the
// extension, total over the supported set and an error otherwise.
type Table struct {
	local   Shard
	remotes []Shard
	byExt   map[string]Shard
}

// NewTable builds a routing table from the local shard and the remote
// shards in their fixed aggregation order.
func NewTable(local Shard, remotes []Shard) (*Table, error) {
	byExt := make(map[string]Shard, len(remotes)+1)
	for _, s := range append([]Shard{local}, remotes...) {
		if s.Ext == "" || !strings.HasPrefix(s.Ext, ".") {
			return nil, fmt.Errorf("shard %s: extension %q must start with a dot", s.Name, s.Ext)
		}
		if _, dup := byExt[s.Ext]; dup {
			return nil, fmt.Errorf("shard %s: duplicate extension %s", s.Name, s.Ext)
		}
		byExt[s.Ext] = s
	}

	return &Table{local: local, remotes: remotes, byExt: byExt}, nil
}

// Local returns the gateway's own shard.
func (t *Table) Local() Shard {
	return t.local
}

// Remotes returns the remote shards in fixed aggregation order.
func (t *Table) Remotes() []Shard {
	return t.remotes
}

// ByExtension routes an extension (with leading dot) to its owning
// shard. Unrecognized extensions are ErrUnsupportedType.
func (t *Table) ByExtension(ext string) (Shard, error) {
	s, ok := t.byExt[ext]
	if !ok {
		return Shard{}, fmt.Errorf("%s: %w", ext, ErrUnsupportedType)
	}
	return s, nil
}

// Route routes a path or filename by its extension.
func (t *Table) Route(name string) (Shard, error) {
	return t.ByExtension(Ext(name))
}

// Ext extracts the file extension, empty when the name has none.
// A leading dot alone (dotfiles) does not count as an extension.
func Ext(name string) string {
	base := path.Base(strings.ReplaceAll(name, "\\", "/"))
	idx := strings.LastIndex(base, ".")
	if idx <= 0 {
		return ""
	}
	return base[idx:]
}
