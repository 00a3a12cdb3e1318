package email

import (
	"bytes"
	"crypto/rand"
	"encoding/base64"
	"testing"
)

func Test_Base64_EncodeAll_MatchesStdlibContent(t *testing.T) {
	for i := 1; i < 256; i++ {
		src := make([]byte, i)
		rand.Read(src)

		want := make([]byte, base64.StdEncoding.EncodedLen(i))
		base64.StdEncoding.Encode(want, src)

		got := EncodeAll(EncodingBase64, src)
		got = bytes.ReplaceAll(got, []byte("\n"), nil)
		if !bytes.Equal(got, want) {
			t.Fatalf("size %d: got\n%s\nwant\n%s", i, got, want)
		}
	}
}

func Test_Base64_DecodeAll_MatchesStdlib(t *testing.T) {
	for i := 1; i < 256; i++ {
		src := make([]byte, i)
		rand.Read(src)

		encoded := make([]byte, base64.StdEncoding.EncodedLen(i))
		base64.StdEncoding.Encode(encoded, src)

		got := DecodeAll(EncodingBase64, encoded)
		if !bytes.Equal(got, src) {
			t.Fatalf("size %d: decode got %x, want %x", i, got, src)
		}
	}
}

func Test_Base64_DecodeStep_IgnoresEmbeddedWhitespace(t *testing.T) {
	d := NewDecoder(EncodingBase64)
	dst := make([]byte, d.Outlen(20))
	n := d.Step(dst, []byte("TW\r\nFu\n"))
	if string(dst[:n]) != "Man" {
		t.Fatalf("got %q, want Man", dst[:n])
	}
}

func Test_Base64_EncodeStep_SingleBytePerCall(t *testing.T) {
	src := []byte("Many hands make light work.")
	s := NewEncoder(EncodingBase64)
	var out bytes.Buffer
	for _, b := range src {
		dst := make([]byte, s.Outlen(1))
		n := s.Step(dst, []byte{b})
		out.Write(dst[:n])
	}
	dst := make([]byte, s.Outlen(0))
	n := s.Close(dst, nil)
	out.Write(dst[:n])

	want := EncodeAll(EncodingBase64, src)
	if !bytes.Equal(out.Bytes(), want) {
		t.Errorf("byte-at-a-time encode diverged from one-shot:\ngot  %q\nwant %q", out.Bytes(), want)
	}
}

func Test_Base64_EncodeClose_EmptyInput(t *testing.T) {
	s := NewEncoder(EncodingBase64)
	dst := make([]byte, s.Outlen(0))
	n := s.Close(dst, nil)
	if n != 0 {
		t.Errorf("closing an encoder that never saw input should write nothing, wrote %d bytes: %q", n, dst[:n])
	}
}

func Test_Base64_Decode_RejectsNonAlphabetBytesSilently(t *testing.T) {
	d := NewDecoder(EncodingBase64)
	dst := make([]byte, d.Outlen(20))
	n := d.Step(dst, []byte("T!W@F#u$"))
	if string(dst[:n]) != "Man" {
		t.Errorf("got %q, want Man (stray punctuation should just be skipped)", dst[:n])
	}
}
