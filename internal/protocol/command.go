// Package protocol implements the shardfs wire codec: text commands, the
// 8-byte size-prefixed transfer frame, and the multi-field length-prefixed
// upload envelope. A single TCP stream carries all three; every multi-byte
// integer is big-endian.
package protocol

import (
	"fmt"
	"io"
	"strings"
)

const (
	// MaxCommandLen bounds a single command read.
	MaxCommandLen = 8192

	// MaxPathLen bounds the destination-path field of an upload envelope
	// and every marker path carried in a command.
	MaxPathLen = 1024

	// MaxFileNameLen bounds the filename field of an upload envelope.
	MaxFileNameLen = 255

	// MaxTransferSize caps a declared transfer size (1 TiB). Guards
	// against resource exhaustion from a hostile or corrupted peer.
	MaxTransferSize = int64(1) << 40

	// ChunkSize is the fixed buffer used by streaming relays, independent
	// of total payload length.
	ChunkSize = 32 * 1024

	// SizeNotFound is the size-prefix sentinel for a failed or missing
	// binary operation. No body follows it.
	SizeNotFound = int64(-1)
)

// Node-internal request verbs.
const (
	VerbGetFile   = "GET_FILE"
	VerbCreateTar = "CREATE_TAR"
	VerbDelete    = "DELETE"
	VerbList      = "LIST"
)

// Node reply tokens: DELETE answers with one of SUCCESS, NOT_FOUND or
// FAILED; LIST answers with a "COUNT <n>" header line followed by one
// filename per line, or ERR_NOT_FOUND for a missing directory.
const (
	ReplySuccess     = "SUCCESS"
	ReplyNotFound    = "NOT_FOUND"
	ReplyFailed      = "FAILED"
	ReplyCount       = "COUNT"
	ReplyErrNotFound = "ERR_NOT_FOUND"
)

// Command is a tokenized text command: a verb and its ordered arguments.
type Command struct {
	Verb string
	Args []string
}

// ParseCommand tokenizes a raw command on whitespace. An empty input
// yields a Command with an empty verb.
func ParseCommand(raw string) Command {
	fields := strings.Fields(raw)
	if len(fields) == 0 {
		return Command{}
	}
	return Command{Verb: fields[0], Args: fields[1:]}
}

// ReadCommand performs a single read of at most MaxCommandLen bytes and
// returns the raw text. There is no terminator on the wire: end of this
// read is end of message, and callers tokenize the result themselves.
// A zero-length read surfaces as io.EOF (peer disconnect).
func ReadCommand(r io.Reader) (string, error) {
	buf := make([]byte, MaxCommandLen)
	n, err := r.Read(buf)
	if n > 0 {
		return string(buf[:n]), nil
	}
	if err == nil {
		err = io.EOF
	}
	return "", err
}

// WriteCommand sends a text command or text reply as one write.
func WriteCommand(w io.Writer, text string) error {
	if len(text) == 0 || len(text) > MaxCommandLen {
		return fmt.Errorf("command of %d bytes: %w", len(text), ErrBadLength)
	}
	if _, err := io.WriteString(w, text); err != nil {
		return fmt.Errorf("write command: %w", err)
	}
	return nil
}
