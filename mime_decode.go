package email

// DecodeContentTransferEncoding decodes src, which was encoded using the
// Content-Transfer-Encoding named by header (e.g. taken directly from a
// parsed "Content-Transfer-Encoding:" header value), and returns the
// decoded payload. Unrecognized or absent encodings are treated as 7bit,
// matching ParseEncoding's default.
//
// This is the receiving-side counterpart to the Base64Encode/
// QuotedPrintableEncode/AttachObjectAs family used when composing a
// Message: parsing the surrounding MIME headers and multipart boundaries
// remains the caller's responsibility, as it does throughout this package.
func DecodeContentTransferEncoding(header string, src []byte) []byte {
	enc := ParseEncoding(header)
	if enc == EncodingDefault {
		enc = EncodingSevenBit
	}
	return DecodeAll(enc, src)
}
