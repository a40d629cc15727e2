package protocol

import "errors"

// Sentinel errors for the wire codec. Handlers wrap these with context
// (fmt.Errorf + %w) and branch with errors.Is at the protocol boundary.
var (
	// ErrShortTransfer indicates the peer closed or errored before the
	// declared byte count was delivered. Any partially written
	// destination file must be removed by the receiver.
	ErrShortTransfer = errors.New("transfer ended before declared size")

	// ErrFrameTooLarge indicates a declared size above the transfer cap.
	ErrFrameTooLarge = errors.New("declared size exceeds transfer cap")

	// ErrBadLength indicates a length field that is not positive or is
	// above its ceiling. Length fields drive buffer sizing and are never
	// trusted before this check.
	ErrBadLength = errors.New("invalid length field")
)
