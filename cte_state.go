package email

// CTEState is the carry state for one direction of one Content-Transfer-Encoding
// stream: a single mutable value threaded through repeated Step calls and
// finished off with one Close call. A CTEState is not safe for concurrent
// use; independent streams need independent states.
type CTEState struct {
	encoding Encoding
	encode   bool

	// state is codec- and direction-specific: a counter, a sub-state, or a
	// sentinel (-1 for "not started" in QP encode, "end of stream" in
	// Base64 decode). Each codec's step function documents its own use.
	state int

	// save holds up to four bytes of carry between Step calls: leftover
	// input bytes for the Base64 and uuencode encoders, the current output
	// column for the QP encoder, accumulated sextets for Base64 decode,
	// quartet-in-progress bytes for uuencode decode, the pending escape
	// character for QP decode.
	save uint32

	// uubuf holds the 60 encoded characters of an in-progress uuencode
	// line when fewer than 45 decoded bytes have been supplied so far.
	uubuf [60]byte
}

// NewEncoder creates a CTEState that encodes into encoding.
func NewEncoder(encoding Encoding) *CTEState {
	s := &CTEState{encoding: encoding, encode: true}
	s.Reset()
	return s
}

// NewDecoder creates a CTEState that decodes out of encoding.
func NewDecoder(encoding Encoding) *CTEState {
	s := &CTEState{encoding: encoding, encode: false}
	s.Reset()
	return s
}

// Reset reinitializes the carry state as if the CTEState had just been
// created, without changing its encoding or direction. Calling Reset twice
// in a row leaves the state identical both times.
func (s *CTEState) Reset() {
	if s.encode && s.encoding == EncodingQuotedPrintable {
		s.state = -1
	} else {
		s.state = 0
	}
	s.save = 0
	s.uubuf = [60]byte{}
}

// Outlen returns an upper bound on the number of bytes a Step or Close call
// with inlen bytes of input might write, given the state's current codec
// and direction. Callers must size their output buffer at least this large.
func (s *CTEState) Outlen(inlen int) int {
	if !s.encode {
		// Decoding never expands; +3 covers a trailing partial group for
		// every codec that has one.
		return inlen + 3
	}

	// Per-line granularity: full 77-byte base64 lines (76 chars + '\n'),
	// full 76-byte quoted-printable lines, full 62-byte uuencode lines
	// (length byte + 60 chars + '\n'), each rounded up one whole line so a
	// Close call with carried state always fits too.
	switch s.encoding {
	case EncodingBase64:
		return ((inlen+2)/57)*77 + 77
	case EncodingQuotedPrintable:
		return (inlen/24)*76 + 76
	case EncodingUUEncode:
		return ((inlen+2)/45)*62 + 64
	default:
		return inlen
	}
}

// Step incrementally encodes or decodes src into dst, returning the number
// of bytes written. dst must be at least Outlen(len(src)) bytes. Call Step
// repeatedly as input chunks arrive, then Close once to drain any residual
// carry state.
func (s *CTEState) Step(dst, src []byte) int {
	switch s.encoding {
	case EncodingBase64:
		if s.encode {
			return s.base64EncodeStep(dst, src)
		}
		return s.base64DecodeStep(dst, src)
	case EncodingQuotedPrintable:
		if s.encode {
			return s.qpEncodeStep(dst, src)
		}
		return s.qpDecodeStep(dst, src)
	case EncodingUUEncode:
		if s.encode {
			return s.uuEncodeStep(dst, src)
		}
		return s.uuDecodeStep(dst, src)
	default:
		return copy(dst, src)
	}
}

// Close finishes an encode or decode pass, flushing any residual carry
// state into dst and returning the number of bytes written. After Close,
// an encoder's carry is back to its initial value and the state is ready to
// be reused; a decoder keeps whatever carry Step left it with (including
// the Base64 and uuencode end-of-stream markers) until Reset is called.
//
// For decoders, Close behaves exactly like Step: a partial group still
// carried at that point produces no output and stays in the state.
func (s *CTEState) Close(dst, src []byte) int {
	switch s.encoding {
	case EncodingBase64:
		if s.encode {
			return s.base64EncodeClose(dst, src)
		}
		return s.base64DecodeStep(dst, src)
	case EncodingQuotedPrintable:
		if s.encode {
			return s.qpEncodeClose(dst, src)
		}
		return s.qpDecodeStep(dst, src)
	case EncodingUUEncode:
		if s.encode {
			return s.uuEncodeClose(dst, src)
		}
		return s.uuDecodeStep(dst, src)
	default:
		return copy(dst, src)
	}
}

// EncodeAll runs encoding over the whole of src in a single Step+Close pass
// and returns the freshly allocated result. It exists for callers that have
// the entire payload in memory already (such as (*buffer).writeBody in
// buffer.go) and don't need incremental processing.
func EncodeAll(encoding Encoding, src []byte) []byte {
	s := NewEncoder(encoding)
	dst := make([]byte, s.Outlen(len(src))+s.Outlen(0))
	n := s.Step(dst, src)
	n += s.Close(dst[n:], nil)
	return dst[:n]
}

// DecodeAll runs decoding over the whole of src in a single Step+Close pass
// and returns the freshly allocated result.
func DecodeAll(encoding Encoding, src []byte) []byte {
	s := NewDecoder(encoding)
	dst := make([]byte, s.Outlen(len(src)))
	n := s.Step(dst, src)
	n += s.Close(dst[n:], nil)
	return dst[:n]
}
