package protocol

import (
	"bytes"
	"encoding/binary"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ============================================================================
// Test Helper Functions
// ============================================================================

// slowReader delivers at most chunk bytes per Read call, forcing callers
// to reassemble across short reads.
type slowReader struct {
	r     io.Reader
	chunk int
}

func (s *slowReader) Read(p []byte) (int, error) {
	if len(p) > s.chunk {
		p = p[:s.chunk]
	}
	return s.r.Read(p)
}

// ============================================================================
// Size Prefix Tests
// ============================================================================

func TestSizePrefix(t *testing.T) {
	t.Run("RoundTrip", func(t *testing.T) {
		for _, size := range []int64{0, 1, 4096, MaxTransferSize} {
			buf := new(bytes.Buffer)
			require.NoError(t, WriteSize(buf, size))
			assert.Equal(t, 8, buf.Len())

			got, err := ReadSize(buf)
			require.NoError(t, err)
			assert.Equal(t, size, got)
		}
	})

	t.Run("NotFoundSentinel", func(t *testing.T) {
		buf := new(bytes.Buffer)
		require.NoError(t, WriteNotFound(buf))

		got, err := ReadSize(buf)
		require.NoError(t, err)
		assert.Equal(t, SizeNotFound, got)
	})

	t.Run("RejectsBelowSentinel", func(t *testing.T) {
		buf := new(bytes.Buffer)
		require.NoError(t, WriteSize(buf, -2))

		_, err := ReadSize(buf)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrBadLength)
	})

	t.Run("RejectsOversized", func(t *testing.T) {
		var raw [8]byte
		binary.BigEndian.PutUint64(raw[:], uint64(MaxTransferSize+1))

		_, err := ReadSize(bytes.NewReader(raw[:]))
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrFrameTooLarge)
	})

	t.Run("TruncatedPrefix", func(t *testing.T) {
		_, err := ReadSize(bytes.NewReader([]byte{0, 0, 0}))
		require.Error(t, err)
	})
}

// ============================================================================
// Transfer Frame Tests
// ============================================================================

func TestFrame(t *testing.T) {
	t.Run("RoundTrip", func(t *testing.T) {
		payload := []byte("package main\n\nfunc main() {}\n")
		wire := new(bytes.Buffer)
		require.NoError(t, WriteFrame(wire, bytes.NewReader(payload), int64(len(payload))))

		size, body, err := ReadFrame(wire)
		require.NoError(t, err)
		require.Equal(t, int64(len(payload)), size)

		got, err := io.ReadAll(body)
		require.NoError(t, err)
		assert.Equal(t, payload, got)
	})

	t.Run("EmptyBody", func(t *testing.T) {
		wire := new(bytes.Buffer)
		require.NoError(t, WriteFrame(wire, bytes.NewReader(nil), 0))

		size, body, err := ReadFrame(wire)
		require.NoError(t, err)
		assert.Equal(t, int64(0), size)

		got, err := io.ReadAll(body)
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("NotFoundHasNoBody", func(t *testing.T) {
		wire := new(bytes.Buffer)
		require.NoError(t, WriteNotFound(wire))

		size, body, err := ReadFrame(wire)
		require.NoError(t, err)
		assert.Equal(t, SizeNotFound, size)
		assert.Nil(t, body)
	})

	t.Run("BodyStopsAtDeclaredSize", func(t *testing.T) {
		// Trailing bytes past the frame belong to the next message.
		stream := new(bytes.Buffer)
		require.NoError(t, WriteFrame(stream, strings.NewReader("hello"), 5))
		stream.WriteString("NEXT")

		size, body, err := ReadFrame(stream)
		require.NoError(t, err)
		require.Equal(t, int64(5), size)

		got, err := io.ReadAll(body)
		require.NoError(t, err)
		assert.Equal(t, "hello", string(got))
		assert.Equal(t, "NEXT", stream.String())
	})

	t.Run("ShortBodyIsShortTransfer", func(t *testing.T) {
		wire := new(bytes.Buffer)
		require.NoError(t, WriteSize(wire, 10))
		wire.WriteString("only6b")

		size, body, err := ReadFrame(wire)
		require.NoError(t, err)
		require.Equal(t, int64(10), size)

		_, err = io.ReadAll(body)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrShortTransfer)
	})
}

// ============================================================================
// Relay Tests
// ============================================================================

func TestRelay(t *testing.T) {
	t.Run("CopiesExactCount", func(t *testing.T) {
		payload := bytes.Repeat([]byte{0xAB}, ChunkSize*3+17)
		dst := new(bytes.Buffer)

		err := Relay(dst, bytes.NewReader(payload), int64(len(payload)))
		require.NoError(t, err)
		assert.Equal(t, payload, dst.Bytes())
	})

	t.Run("HandlesFragmentedSource", func(t *testing.T) {
		payload := bytes.Repeat([]byte("abc"), 1000)
		src := &slowReader{r: bytes.NewReader(payload), chunk: 7}
		dst := new(bytes.Buffer)

		err := Relay(dst, src, int64(len(payload)))
		require.NoError(t, err)
		assert.Equal(t, payload, dst.Bytes())
	})

	t.Run("ShortSourceIsShortTransfer", func(t *testing.T) {
		dst := new(bytes.Buffer)
		err := Relay(dst, strings.NewReader("abc"), 10)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrShortTransfer)
	})

	t.Run("ZeroBytes", func(t *testing.T) {
		dst := new(bytes.Buffer)
		require.NoError(t, Relay(dst, strings.NewReader(""), 0))
		assert.Zero(t, dst.Len())
	})
}
