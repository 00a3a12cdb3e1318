package email

// uuRank maps an ASCII byte to its 6-bit uuencode value: (c - 0x20) & 0x3f,
// computed with 8-bit wraparound so every byte value has a defined rank. A
// length byte of exactly 0x20 (space) or 0x60 (backtick) both rank to 0.
var uuRank = func() [256]byte {
	var t [256]byte
	for i := range t {
		t[i] = byte(i-0x20) & 0x3f
	}
	return t
}()

// uuChar is the inverse: it turns a 6-bit value into the character that
// encodes it, special-casing 0 to '`' so a zero-length line never looks
// like a bare space.
func uuChar(c byte) byte {
	if c == 0 {
		return '`'
	}
	return c + ' '
}

// writeUUQuartet packs three decoded bytes into the four uuencode
// characters that represent them.
func writeUUQuartet(buf []byte, b0, b1, b2 byte) {
	buf[0] = uuChar((b0 >> 2) & 0x3f)
	buf[1] = uuChar(((b0 << 4) | (b1 >> 4)) & 0x3f)
	buf[2] = uuChar(((b1 << 2) | (b2 >> 6)) & 0x3f)
	buf[3] = uuChar(b2 & 0x3f)
}

// uuEncodeStep absorbs input three bytes at a time, appending each encoded
// quartet to the current line's scratch space in s.uubuf. Once a line
// reaches 45 decoded bytes (60 encoded characters), the line header, its
// data, and a trailing '\n' are written to dst and the line resets. Up to
// two leftover input bytes carry over to the next call.
func (s *CTEState) uuEncodeStep(dst, src []byte) int {
	if len(src) == 0 {
		return 0
	}

	out := 0
	carryLen := int(s.state & 0xff)
	uulen := int(s.state >> 8 & 0xff)

	var pending [2]byte
	if carryLen >= 1 {
		pending[0] = byte(s.save >> 8)
	}
	if carryLen == 2 {
		pending[1] = byte(s.save)
	}

	total := carryLen + len(src)
	pos := 0
	readByte := func() byte {
		if pos < carryLen {
			b := pending[pos]
			pos++
			return b
		}
		b := src[pos-carryLen]
		pos++
		return b
	}

	for total-pos >= 3 {
		b0, b1, b2 := readByte(), readByte(), readByte()
		writeUUQuartet(s.uubuf[(uulen/3)*4:], b0, b1, b2)
		uulen += 3

		if uulen >= 45 {
			dst[out] = uuChar(45)
			out++
			out += copy(dst[out:], s.uubuf[:60])
			dst[out] = '\n'
			out++
			uulen = 0
		}
	}

	remaining := total - pos
	var newPending [2]byte
	for k := 0; k < remaining; k++ {
		newPending[k] = readByte()
	}

	s.state = uulen<<8 | remaining
	s.save = uint32(newPending[0])<<8 | uint32(newPending[1])

	return out
}

// uuEncodeClose pads any leftover bytes to a full triplet with zeros,
// emits the final partial line (recording the true, unpadded decoded byte
// count in the line's length byte), and always appends the zero-length
// terminator line.
func (s *CTEState) uuEncodeClose(dst, src []byte) int {
	out := 0
	if len(src) > 0 {
		out += s.uuEncodeStep(dst, src)
	}

	carryLen := int(s.state & 0xff)
	uulen := int(s.state >> 8 & 0xff)

	var pending [2]byte
	if carryLen >= 1 {
		pending[0] = byte(s.save >> 8)
	}
	if carryLen == 2 {
		pending[1] = byte(s.save)
	}

	fill := 0
	if carryLen > 0 {
		fill = 3 - carryLen
		writeUUQuartet(s.uubuf[(uulen/3)*4:], pending[0], pending[1], 0)
		uulen += 3
	}

	if uulen > 0 {
		cplen := (uulen / 3) * 4
		dst[out] = uuChar(byte(uulen - fill))
		out++
		out += copy(dst[out:], s.uubuf[:cplen])
		dst[out] = '\n'
		out++
	}

	dst[out] = uuChar(0)
	out++
	dst[out] = '\n'
	out++

	s.state = 0
	s.save = 0

	return out
}

// uuDecodeEndFlag marks that a zero-length ("terminator") line has been
// seen; it lives above the 16 bits used to pack the quartet-progress and
// line-budget counters.
const uuDecodeEndFlag = 1 << 16

// uuDecodeStep skips '\n' line delimiters, treats the first byte of each
// line as a length prefix (zero halts decoding for good), and turns every
// complete quartet into up to three output bytes, trimming at the line's
// declared length: decoded bytes of a line's last quartet beyond that
// length are discarded. Once the declared length is used up, the next
// non-'\n' byte is read as a new length byte.
func (s *CTEState) uuDecodeStep(dst, src []byte) int {
	if s.state&uuDecodeEndFlag != 0 {
		return 0
	}

	out := 0
	i := s.state & 0xff
	uulen := s.state >> 8 & 0xff
	saved := s.save
	lastWasEOLN := uulen == 0
	ended := false

loop:
	for idx := 0; idx < len(src); idx++ {
		c := src[idx]
		switch {
		case c == '\n':
			lastWasEOLN = true
		case uulen == 0 || lastWasEOLN:
			uulen = int(uuRank[c])
			lastWasEOLN = false
			if uulen == 0 {
				ended = true
				break loop
			}
		default:
			saved = saved<<8 | uint32(c)
			i++
			if i == 4 {
				b0 := byte(saved >> 24)
				b1 := byte(saved >> 16)
				b2 := byte(saved >> 8)
				b3 := byte(saved)

				out0 := uuRank[b0]<<2 | uuRank[b1]>>4
				out1 := uuRank[b1]<<4 | uuRank[b2]>>2
				out2 := uuRank[b2]<<6 | uuRank[b3]

				if uulen >= 3 {
					dst[out], dst[out+1], dst[out+2] = out0, out1, out2
					out += 3
					uulen -= 3
				} else {
					dst[out] = out0
					out++
					uulen--
					if uulen >= 1 {
						dst[out] = out1
						out++
						uulen--
					}
				}
				i, saved = 0, 0
			}
		}
	}

	s.save = saved
	if ended {
		s.state = uuDecodeEndFlag
	} else {
		s.state = uulen<<8 | i
	}

	return out
}
