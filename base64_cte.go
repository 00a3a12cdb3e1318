package email

// base64Rank maps an ASCII byte to its 6-bit Base64 alphabet index, or to
// 0xFF if the byte is not part of the alphabet. Built once from base64table
// rather than hand-transcribed as 256 literals.
var base64Rank = func() [256]byte {
	var t [256]byte
	for i := range t {
		t[i] = 0xFF
	}
	for i := 0; i < len(base64table); i++ {
		t[base64table[i]] = byte(i)
	}
	return t
}()

// base64EncodeStep absorbs src three bytes at a time into base64 quartets,
// wrapping with '\n' every 19 quartets (76 output columns). Up to two
// leftover input bytes carry over to the next call via s.save.
func (s *CTEState) base64EncodeStep(dst, src []byte) int {
	if len(src) == 0 {
		return 0
	}

	quartets := s.state
	count := int(s.save >> 16 & 0xff)
	b1 := byte(s.save >> 8)
	b2 := byte(s.save)

	out := 0
	in := 0
	inlen := len(src)

	if inlen+count > 2 {
		var c1, c2, c3 int
		if count < 1 {
			c1 = int(src[in])
			in++
		} else {
			c1 = int(b1)
		}
		if count < 2 {
			c2 = int(src[in])
			in++
		} else {
			c2 = int(b2)
		}
		c3 = int(src[in])
		in++

		for {
			dst[out] = base64table[c1>>2]
			dst[out+1] = base64table[((c1&0x3)<<4)|(c2>>4)]
			dst[out+2] = base64table[((c2&0x0f)<<2)|(c3>>6)]
			dst[out+3] = base64table[c3&0x3f]
			out += 4

			quartets++
			if quartets >= 19 {
				dst[out] = '\n'
				out++
				quartets = 0
			}

			if inlen-in < 3 {
				break
			}
			c1, c2, c3 = int(src[in]), int(src[in+1]), int(src[in+2])
			in += 3
		}

		count = inlen - in
		b1, b2 = 0, 0
		if count >= 1 {
			b1 = src[in]
			in++
		}
		if count == 2 {
			b2 = src[in]
			in++
		}
	} else if count == 0 {
		count = inlen
		b1 = src[in]
		in++
		if count == 2 {
			b2 = src[in]
			in++
		}
	} else {
		// count == 1: exactly one more byte fits before we'd have a triplet.
		b2 = src[in]
		in++
		count = 2
	}

	s.state = quartets
	s.save = uint32(count)<<16 | uint32(b1)<<8 | uint32(b2)

	return out
}

// base64EncodeClose flushes whatever partial triplet remains in s.save,
// padding with '=' as needed, and terminates the final line with '\n' if
// anything was written to it.
func (s *CTEState) base64EncodeClose(dst, src []byte) int {
	out := 0
	if len(src) > 0 {
		out += s.base64EncodeStep(dst, src)
	}

	quartets := s.state
	count := int(s.save >> 16 & 0xff)
	c1 := int(s.save >> 8 & 0xff)
	c2 := int(s.save & 0xff)

	if count > 0 {
		dst[out] = base64table[c1>>2]
		dst[out+1] = base64table[((c1&0x3)<<4)|(c2>>4)]
		if count == 2 {
			dst[out+2] = base64table[(c2&0x0f)<<2]
		} else {
			dst[out+2] = '='
		}
		dst[out+3] = '='
		out += 4
		quartets++
	}

	if quartets > 0 {
		dst[out] = '\n'
		out++
	}

	s.state = 0
	s.save = 0

	return out
}

// base64DecodeStep translates src through base64Rank, skipping any byte that
// isn't part of the alphabet (this tolerates embedded whitespace). Every
// four accumulated sextets become three output bytes. A '=' marks
// end-of-stream: the decoder flushes whatever sextets remain and refuses to
// consume any further input (s.state becomes -1).
func (s *CTEState) base64DecodeStep(dst, src []byte) int {
	if s.state == -1 {
		return 0
	}

	n := s.state
	saved := s.save
	out := 0
	eof := false

	i := 0
	for i < len(src) {
		c := src[i]
		i++

		rank := base64Rank[c]
		if rank != 0xFF {
			saved = saved<<6 | uint32(rank)
			n++
			if n == 4 {
				dst[out] = byte(saved >> 16)
				dst[out+1] = byte(saved >> 8)
				dst[out+2] = byte(saved)
				out += 3
				saved = 0
				n = 0
			}
		} else if c == '=' {
			eof = true
			break
		}
	}

	if eof {
		// n should be 2 or 3 in well-formed input; n <= 1 means the
		// encoder produced a broken quartet, and we emit nothing for it.
		if n > 1 {
			eq := 4 - n
			saved <<= uint(6 * eq)
			dst[out] = byte(saved >> 16)
			out++
			if n > 2 {
				dst[out] = byte(saved >> 8)
				out++
			}
		}
		n = -1
	}

	s.save = saved
	s.state = n

	return out
}
