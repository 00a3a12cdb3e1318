package email

import (
	"bytes"
	"crypto/rand"
	"testing"
)

// concrete scenarios ---------------------------------------------------

func Test_CTEState_Scenarios(t *testing.T) {
	cases := []struct {
		name string
		enc  Encoding
		dir  func(Encoding) *CTEState
		in   string
		exp  string
	}{
		{"base64 encode Man", EncodingBase64, NewEncoder, "Man", "TWFu\n"},
		{"base64 encode Ma", EncodingBase64, NewEncoder, "Ma", "TWE=\n"},
		{"base64 decode TWFu", EncodingBase64, NewDecoder, "TWFu", "Man"},
		{"base64 decode trailing garbage", EncodingBase64, NewDecoder, "TWE=garbage", "Ma"},
		{"qp encode trailing space escaped", EncodingQuotedPrintable, NewEncoder, "Hello=World ", "Hello=3DWorld=20=\n"},
		{"qp decode soft break with space", EncodingQuotedPrintable, NewDecoder, "a=3Db=\n c", "a=b c"},
		{"uu encode Cat", EncodingUUEncode, NewEncoder, "Cat", "#0V%T\n`\n"},
		{"uu decode Cat", EncodingUUEncode, NewDecoder, "#0V%T\n`\n", "Cat"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			s := c.dir(c.enc)
			dst := make([]byte, s.Outlen(len(c.in))+s.Outlen(0))
			n := s.Step(dst, []byte(c.in))
			n += s.Close(dst[n:], nil)
			if act := string(dst[:n]); act != c.exp {
				t.Errorf("got %q, want %q", act, c.exp)
			}
		})
	}
}

func Test_Identity_PassesThroughUnchanged(t *testing.T) {
	for _, enc := range []Encoding{EncodingSevenBit, EncodingEightBit, EncodingBinary} {
		for _, dir := range []func(Encoding) *CTEState{NewEncoder, NewDecoder} {
			s := dir(enc)
			in := []byte("\x00\xff")
			dst := make([]byte, s.Outlen(len(in)))
			n := s.Step(dst, in)
			if !bytes.Equal(dst[:n], in) {
				t.Errorf("identity %v passthrough mismatch: got %x want %x", enc, dst[:n], in)
			}
		}
	}
}

// universal properties --------------------------------------------------

var allCodecs = []Encoding{EncodingBase64, EncodingQuotedPrintable, EncodingUUEncode}

func encodeAllChunked(t *testing.T, enc Encoding, src []byte, chunks []int) []byte {
	t.Helper()
	s := NewEncoder(enc)
	var out bytes.Buffer
	pos := 0
	for _, n := range chunks {
		chunk := src[pos : pos+n]
		pos += n
		dst := make([]byte, s.Outlen(len(chunk)))
		w := s.Step(dst, chunk)
		out.Write(dst[:w])
	}
	dst := make([]byte, s.Outlen(0))
	w := s.Close(dst, nil)
	out.Write(dst[:w])
	return out.Bytes()
}

func Test_ChunkingInvariance(t *testing.T) {
	src := make([]byte, 300)
	if _, err := rand.Read(src); err != nil {
		t.Fatal(err)
	}

	partitions := [][]int{
		{len(src)},
		splitEvenly(len(src), 7),
		splitEvenly(len(src), 1),
		splitEvenly(len(src), 50),
	}

	for _, enc := range allCodecs {
		oneShot := encodeAllChunked(t, enc, src, []int{len(src)})
		for i, parts := range partitions {
			chunked := encodeAllChunked(t, enc, src, parts)
			if !bytes.Equal(oneShot, chunked) {
				t.Errorf("%v: partition %d diverges from one-shot encode\ngot  %q\nwant %q", enc, i, chunked, oneShot)
			}
		}
	}
}

// splitEvenly partitions n bytes into chunks of size at most max, in order.
func splitEvenly(n, max int) []int {
	var out []int
	for n > 0 {
		c := max
		if c > n {
			c = n
		}
		out = append(out, c)
		n -= c
	}
	if len(out) == 0 {
		out = []int{0}
	}
	return out
}

// randBytes returns n cryptographically random bytes. For quoted-printable,
// a lone '\r' immediately followed by '\n' is intentionally canonicalized to
// a single '\n' on encode (matching the CRLF-to-newline folding every QP
// implementation, including encoding/quotedprintable, performs on text), so
// it is excluded here: round-tripping is only byte-exact for the codecs that
// never look at one byte's meaning in light of its neighbor.
func randBytes(t *testing.T, n int, excludeCR bool) []byte {
	t.Helper()
	b := make([]byte, n)
	if n > 0 {
		if _, err := rand.Read(b); err != nil {
			t.Fatal(err)
		}
	}
	if excludeCR {
		for i, c := range b {
			if c == '\r' {
				b[i] = '\f'
			}
		}
	}
	return b
}

func Test_RoundTrip(t *testing.T) {
	sizes := []int{0, 1, 2, 3, 4, 5, 44, 45, 46, 89, 90, 91, 1000}
	for _, enc := range allCodecs {
		for _, size := range sizes {
			src := randBytes(t, size, enc == EncodingQuotedPrintable)
			encoded := EncodeAll(enc, src)
			decoded := DecodeAll(enc, encoded)
			if !bytes.Equal(decoded, src) {
				t.Errorf("%v round-trip failed at size %d: got %d bytes, want %d", enc, size, len(decoded), len(src))
			}
		}
	}
}

func Test_RoundTrip_DecoderFedInChunks(t *testing.T) {
	for _, enc := range allCodecs {
		src := randBytes(t, 500, enc == EncodingQuotedPrintable)
		encoded := EncodeAll(enc, src)

		dec := NewDecoder(enc)
		var out bytes.Buffer
		for i := 0; i < len(encoded); i += 3 {
			end := i + 3
			if end > len(encoded) {
				end = len(encoded)
			}
			chunk := encoded[i:end]
			dst := make([]byte, dec.Outlen(len(chunk)))
			n := dec.Step(dst, chunk)
			out.Write(dst[:n])
		}
		dst := make([]byte, dec.Outlen(0))
		n := dec.Close(dst, nil)
		out.Write(dst[:n])

		if !bytes.Equal(out.Bytes(), src) {
			t.Errorf("%v chunked-decode round-trip failed: got %d bytes, want %d", enc, out.Len(), len(src))
		}
	}
}

func Test_IdempotentReset(t *testing.T) {
	for _, enc := range append(append([]Encoding{}, allCodecs...), EncodingSevenBit) {
		for _, dir := range []func(Encoding) *CTEState{NewEncoder, NewDecoder} {
			s := dir(enc)
			// churn some state, then reset twice.
			dst := make([]byte, s.Outlen(3))
			s.Step(dst, []byte("abc"))
			s.Reset()
			first := *s
			s.Reset()
			second := *s
			if first != second {
				t.Errorf("%v %p: reset is not idempotent: %+v != %+v", enc, s, first, second)
			}
		}
	}
}

func Test_Outlen_NeverTooSmall(t *testing.T) {
	src := make([]byte, 1000)
	if _, err := rand.Read(src); err != nil {
		t.Fatal(err)
	}
	for _, enc := range allCodecs {
		s := NewEncoder(enc)
		if got, max := s.Outlen(len(src)), len(src)*4; got < len(src) || got > max {
			t.Errorf("%v encode Outlen(%d) = %d looks implausible", enc, len(src), got)
		}

		d := NewDecoder(enc)
		if got := d.Outlen(len(src)); got < len(src) {
			t.Errorf("%v decode Outlen(%d) = %d is smaller than input", enc, len(src), got)
		}
	}
}

func Test_Base64_LineWrap(t *testing.T) {
	src := make([]byte, 1000)
	if _, err := rand.Read(src); err != nil {
		t.Fatal(err)
	}
	out := EncodeAll(EncodingBase64, src)
	lines := bytes.Split(bytes.TrimRight(out, "\n"), []byte("\n"))
	for i, line := range lines {
		if i < len(lines)-1 && len(line) != 76 {
			t.Errorf("base64 line %d has length %d, want 76", i, len(line))
		}
	}
}

func Test_QP_LineLength(t *testing.T) {
	src := bytes.Repeat([]byte("the quick brown fox jumps over the lazy dog, "), 20)
	out := EncodeAll(EncodingQuotedPrintable, src)
	for _, line := range bytes.Split(out, []byte("\n")) {
		if len(line) > 76 {
			t.Errorf("qp line too long: %d bytes: %q", len(line), line)
		}
	}
	if !bytes.HasSuffix(out, []byte("=\n")) {
		t.Errorf("qp output must end with a soft break, got %q", out[len(out)-8:])
	}
}

func Test_UUEncode_LineFraming(t *testing.T) {
	src := make([]byte, 45*3)
	if _, err := rand.Read(src); err != nil {
		t.Fatal(err)
	}
	out := EncodeAll(EncodingUUEncode, src)
	lines := bytes.Split(bytes.TrimRight(out, "\n"), []byte("\n"))
	for i, line := range lines[:len(lines)-1] {
		if len(line) != 61 {
			t.Errorf("uu line %d has length %d, want 61 (1 length byte + 60 data)", i, len(line))
		}
	}
	last := lines[len(lines)-1]
	if string(last) != "`" {
		t.Errorf("uu terminator line = %q, want \"`\"", last)
	}
}

func Test_Base64Decode_StopsAtEndOfStream(t *testing.T) {
	d := NewDecoder(EncodingBase64)
	dst := make([]byte, d.Outlen(20))
	n := d.Step(dst, []byte("TWFu="))
	if string(dst[:n]) != "Man" {
		t.Fatalf("got %q, want Man", dst[:n])
	}
	n = d.Step(dst, []byte("whatever"))
	if n != 0 {
		t.Errorf("decode after end-of-stream should return 0, got %d", n)
	}
}

func Test_Outlen_BoundsEveryStepAndClose(t *testing.T) {
	src := make([]byte, 700)
	if _, err := rand.Read(src); err != nil {
		t.Fatal(err)
	}
	chunkSizes := []int{1, 2, 3, 44, 45, 57, 76, 100}

	for _, enc := range allCodecs {
		for _, size := range chunkSizes {
			for _, dir := range []func(Encoding) *CTEState{NewEncoder, NewDecoder} {
				s := dir(enc)
				data := src
				if !s.encode {
					data = EncodeAll(enc, src)
				}
				for pos := 0; pos < len(data); {
					end := pos + size
					if end > len(data) {
						end = len(data)
					}
					chunk := data[pos:end]
					pos = end
					bound := s.Outlen(len(chunk))
					dst := make([]byte, bound)
					if n := s.Step(dst, chunk); n > bound {
						t.Fatalf("%v chunk=%d: Step wrote %d > Outlen %d", enc, size, n, bound)
					}
				}
				bound := s.Outlen(0)
				dst := make([]byte, bound)
				if n := s.Close(dst, nil); n > bound {
					t.Fatalf("%v chunk=%d: Close wrote %d > Outlen %d", enc, size, n, bound)
				}
			}
		}
	}
}
