package protocol

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
)

// UploadEnvelope is the header preceding an uploaded file's body:
// destination-path length, destination path, filename length, filename,
// then the 8-byte body size.
type UploadEnvelope struct {
	DestPath string
	Filename string
	Size     int64
}

// WriteEnvelope sends the envelope header. The caller streams Size body
// bytes immediately after.
func WriteEnvelope(w io.Writer, env UploadEnvelope) error {
	if len(env.DestPath) == 0 || len(env.DestPath) > MaxPathLen {
		return fmt.Errorf("destination path of %d bytes: %w", len(env.DestPath), ErrBadLength)
	}
	if len(env.Filename) == 0 || len(env.Filename) > MaxFileNameLen {
		return fmt.Errorf("filename of %d bytes: %w", len(env.Filename), ErrBadLength)
	}
	if env.Size < 0 || env.Size > MaxTransferSize {
		return fmt.Errorf("file size %d: %w", env.Size, ErrFrameTooLarge)
	}

	buf := new(bytes.Buffer)
	_ = binary.Write(buf, binary.BigEndian, int32(len(env.DestPath)))
	buf.WriteString(env.DestPath)
	_ = binary.Write(buf, binary.BigEndian, int32(len(env.Filename)))
	buf.WriteString(env.Filename)
	_ = binary.Write(buf, binary.BigEndian, env.Size)

	if _, err := w.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("write envelope header: %w", err)
	}
	return nil
}

// IsEnvelopePrefix reports whether buf plausibly starts an upload
// envelope: at least 4 bytes whose big-endian int32 is a valid path
// length. Text verbs never collide, since their first four ASCII bytes
// decode far above MaxPathLen.
func IsEnvelopePrefix(buf []byte) bool {
	if len(buf) < 4 {
		return false
	}
	n := int32(binary.BigEndian.Uint32(buf[:4]))
	return n > 0 && n <= MaxPathLen
}

// EnvelopeReader parses an upload envelope whose bytes may be split
// between a buffer that was already read off the stream (the node's
// first speculative command read) and the stream itself. Each field is
// completed from what is buffered before the exact additional read it
// still needs is issued; a single bulk read is never assumed to return a
// whole header.
type EnvelopeReader struct {
	r   io.Reader
	buf []byte
}

// NewEnvelopeReader wraps stream r, seeded with any bytes already read.
func NewEnvelopeReader(r io.Reader, buffered []byte) *EnvelopeReader {
	return &EnvelopeReader{r: r, buf: buffered}
}

// take returns the next n bytes, consuming buffered bytes first and
// reading exactly the missing remainder from the stream.
func (er *EnvelopeReader) take(n int) ([]byte, error) {
	for len(er.buf) < n {
		missing := make([]byte, n-len(er.buf))
		if _, err := io.ReadFull(er.r, missing); err != nil {
			if err == io.EOF || err == io.ErrUnexpectedEOF {
				return nil, fmt.Errorf("envelope header truncated: %w", ErrShortTransfer)
			}
			return nil, fmt.Errorf("read envelope header: %w", err)
		}
		er.buf = append(er.buf, missing...)
	}

	out := er.buf[:n]
	er.buf = er.buf[n:]
	return out, nil
}

func (er *EnvelopeReader) takeInt32() (int32, error) {
	b, err := er.take(4)
	if err != nil {
		return 0, err
	}
	return int32(binary.BigEndian.Uint32(b)), nil
}

// ReadHeader parses the envelope header field by field. Length fields
// are validated before they are used as read counts; a violation aborts
// before any destination file is opened.
func (er *EnvelopeReader) ReadHeader() (*UploadEnvelope, error) {
	destLen, err := er.takeInt32()
	if err != nil {
		return nil, err
	}
	if destLen <= 0 || destLen > MaxPathLen {
		return nil, fmt.Errorf("destination path length %d: %w", destLen, ErrBadLength)
	}
	dest, err := er.take(int(destLen))
	if err != nil {
		return nil, err
	}
	destPath := string(dest)

	nameLen, err := er.takeInt32()
	if err != nil {
		return nil, err
	}
	if nameLen <= 0 || nameLen > MaxFileNameLen {
		return nil, fmt.Errorf("filename length %d: %w", nameLen, ErrBadLength)
	}
	name, err := er.take(int(nameLen))
	if err != nil {
		return nil, err
	}

	sizeBytes, err := er.take(8)
	if err != nil {
		return nil, err
	}
	size := int64(binary.BigEndian.Uint64(sizeBytes))
	if size < 0 {
		return nil, fmt.Errorf("file size %d: %w", size, ErrBadLength)
	}
	if size > MaxTransferSize {
		return nil, fmt.Errorf("file size %d: %w", size, ErrFrameTooLarge)
	}

	return &UploadEnvelope{DestPath: destPath, Filename: string(name), Size: size}, nil
}

// Body returns a reader delivering exactly size body bytes, starting
// with whatever body bytes were already buffered past the header.
func (er *EnvelopeReader) Body(size int64) io.Reader {
	head := er.buf
	er.buf = nil
	if int64(len(head)) > size {
		head = head[:size]
	}
	return io.MultiReader(bytes.NewReader(head), NewFrameBody(er.r, size-int64(len(head))))
}
