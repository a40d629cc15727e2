package protocol

import (
	"encoding/binary"
	"fmt"
	"io"
)

// WriteSize sends the 8-byte signed size prefix that starts every binary
// transfer.
func WriteSize(w io.Writer, size int64) error {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(size))
	if _, err := w.Write(buf[:]); err != nil {
		return fmt.Errorf("write size prefix: %w", err)
	}
	return nil
}

// WriteNotFound sends the -1 sentinel frame: operation failed or target
// absent, no body follows.
func WriteNotFound(w io.Writer) error {
	return WriteSize(w, SizeNotFound)
}

// ReadSize reads exactly 8 bytes and validates the declared size. Valid
// results are -1 (not found) or 0..MaxTransferSize.
func ReadSize(r io.Reader) (int64, error) {
	var buf [8]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, fmt.Errorf("read size prefix: %w", err)
	}

	size := int64(binary.BigEndian.Uint64(buf[:]))
	if size < SizeNotFound {
		return 0, fmt.Errorf("size %d: %w", size, ErrBadLength)
	}
	if size > MaxTransferSize {
		return 0, fmt.Errorf("size %d: %w", size, ErrFrameTooLarge)
	}
	return size, nil
}

// ReadFrame reads a transfer frame's size prefix and returns a lazy body
// reader that delivers exactly size bytes, retrying partial reads until
// the count is met. A -1 prefix returns (SizeNotFound, nil, nil): the
// operation failed on the remote side and no body follows.
func ReadFrame(r io.Reader) (int64, io.Reader, error) {
	size, err := ReadSize(r)
	if err != nil {
		return 0, nil, err
	}
	if size == SizeNotFound {
		return SizeNotFound, nil, nil
	}
	return size, NewFrameBody(r, size), nil
}

// NewFrameBody returns a reader that delivers exactly size bytes from r.
// Early EOF from the underlying stream is reported as ErrShortTransfer,
// never as a clean end of body.
func NewFrameBody(r io.Reader, size int64) io.Reader {
	return &frameBody{r: r, remaining: size}
}

type frameBody struct {
	r         io.Reader
	remaining int64
}

func (b *frameBody) Read(p []byte) (int, error) {
	if b.remaining <= 0 {
		return 0, io.EOF
	}
	if int64(len(p)) > b.remaining {
		p = p[:b.remaining]
	}

	n, err := b.r.Read(p)
	b.remaining -= int64(n)

	if err == io.EOF && b.remaining > 0 {
		err = fmt.Errorf("%d bytes missing: %w", b.remaining, ErrShortTransfer)
	}
	return n, err
}

// WriteFrame sends a complete transfer frame: the size prefix followed by
// exactly size bytes copied from src through a fixed-size buffer.
func WriteFrame(w io.Writer, src io.Reader, size int64) error {
	if err := WriteSize(w, size); err != nil {
		return err
	}
	return Relay(w, src, size)
}

// Relay copies exactly size bytes from src to dst in ChunkSize steps,
// reading then writing in lockstep so a slow side backpressures the other
// without unbounded buffering. Early EOF on src is ErrShortTransfer.
func Relay(dst io.Writer, src io.Reader, size int64) error {
	buf := make([]byte, ChunkSize)
	remaining := size

	for remaining > 0 {
		chunk := buf
		if remaining < int64(len(chunk)) {
			chunk = chunk[:remaining]
		}

		n, rerr := src.Read(chunk)
		if n > 0 {
			if _, werr := dst.Write(chunk[:n]); werr != nil {
				return fmt.Errorf("relay write: %w", werr)
			}
			remaining -= int64(n)
		}
		if rerr != nil {
			if rerr == io.EOF && remaining > 0 {
				return fmt.Errorf("%d bytes missing: %w", remaining, ErrShortTransfer)
			}
			if rerr != io.EOF {
				return fmt.Errorf("relay read: %w", rerr)
			}
		}
		if n == 0 && rerr == nil {
			// A zero-byte read with nil error must not spin forever.
			return fmt.Errorf("%d bytes missing: %w", remaining, ErrShortTransfer)
		}
	}
	return nil
}
