package email

// buffer accumulates the wire form of a message. Write accepts the handful
// of value kinds message composition deals in, so call sites can interleave
// header literals, encoded bodies and single delimiter bytes freely.
type buffer []byte

func newBuffer(size int) *buffer {
	b := make(buffer, 0, size)
	return &b
}

func (b *buffer) Write(data ...interface{}) {
	for _, value := range data {
		switch v := value.(type) {
		case string:
			*b = append(*b, v...)
		case []byte:
			*b = append(*b, v...)
		case byte:
			*b = append(*b, v)
		case rune:
			*b = append(*b, string(v)...)
		}
	}
}

// writeBody appends data run through the streaming codec for enc, with the
// codec's '\n' line breaks rewritten to the "\r\n" the wire requires.
func (b *buffer) writeBody(enc Encoding, data []byte) {
	*b = append(*b, toCRLF(EncodeAll(enc, data))...)
}

func (b *buffer) Bytes() []byte {
	return *b
}
