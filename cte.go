package email

import "strings"

// Encoding identifies a MIME Content-Transfer-Encoding.
type Encoding byte

const (
	// EncodingDefault is returned for an unrecognized encoding name; callers
	// should treat it the same as EncodingSevenBit.
	EncodingDefault Encoding = iota
	EncodingSevenBit
	EncodingEightBit
	EncodingBinary
	EncodingBase64
	EncodingQuotedPrintable
	EncodingUUEncode
)

// ParseEncoding maps a textual Content-Transfer-Encoding value, as it would
// appear in a header, to the Encoding it names. Leading whitespace is
// tolerated and the match is case-insensitive. An unrecognized value yields
// EncodingDefault.
func ParseEncoding(str string) Encoding {
	str = strings.TrimLeft(str, " \t")

	switch {
	case is(str, "7bit"), is(str, "7-bit"):
		return EncodingSevenBit
	case is(str, "8bit"), is(str, "8-bit"):
		return EncodingEightBit
	case is(str, "binary"):
		return EncodingBinary
	case is(str, "base64"):
		return EncodingBase64
	case is(str, "quoted-printable"):
		return EncodingQuotedPrintable
	case is(str, "uuencode"), is(str, "x-uuencode"), is(str, "x-uue"):
		return EncodingUUEncode
	default:
		return EncodingDefault
	}
}

// is reports whether str begins with value (case-insensitively) and is
// immediately followed by the end of the string or by whitespace.
func is(str, value string) bool {
	n := len(value)
	if len(str) < n || !strings.EqualFold(str[:n], value) {
		return false
	}
	return len(str) == n || str[n] == ' ' || str[n] == '\t'
}

// String returns the canonical textual spelling of the encoding, or "" if
// the receiver does not name a real encoding.
func (e Encoding) String() string {
	switch e {
	case EncodingSevenBit:
		return "7bit"
	case EncodingEightBit:
		return "8bit"
	case EncodingBinary:
		return "binary"
	case EncodingBase64:
		return "base64"
	case EncodingQuotedPrintable:
		return "quoted-printable"
	case EncodingUUEncode:
		return "x-uuencode"
	default:
		return ""
	}
}
