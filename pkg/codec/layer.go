// Package codec implements the layered binary wire format of ANSI E1.59 §4.1:
// OTP layer -> (Advertisement layer -> module/name/system inner layer) |
// (Transform layer -> Point layer -> Module layer+). Every layer but the
// innermost Module layer is framed by a 2-byte vector and a 2-byte length
// counting from the byte after the length field to the end of that PDU, one
// vector+length frame nested inside the next.
//
// Decoders return an error rather than a plain (value, ok bool) so that
// field-naming errors (ANSI E1.59 §7) can propagate; module decoders and
// the internal point/module layer decoders also return bytes consumed;
// structural errors abort the enclosing layer's parse while value errors
// let surviving siblings continue, exactly as ANSI E1.59 §4.1's decode
// policy requires.
package codec

import (
	"encoding/binary"
	"fmt"

	otp "github.com/burgrp-go/otp/pkg"
)

// Vector identifies a layer's body type.
type Vector uint16

const (
	VectorOTPTransform     Vector = 0xFF01
	VectorOTPAdvertisement Vector = 0xFF02

	VectorAdvertModule Vector = 0x0001
	VectorAdvertName   Vector = 0x0002
	VectorAdvertSystem Vector = 0x0003

	VectorTransformPoint Vector = 0x0001
	VectorPointModule    Vector = 0x0001
)

// MaxUDPPayload bounds a single encoded transform datagram. The
// producer's page-splitting assembly uses this constant directly; there
// is no per-call or per-socket override.
const MaxUDPPayload = 1472 // a conservative Ethernet MTU minus IP/UDP headers

// writeVectorLength writes a layer's vector and a zero-valued length
// placeholder, returning the offset of the length field so the caller can
// patch it in once the body is known.
func writeVectorLength(buf []byte, vector Vector) (out []byte, lengthOffset int) {
	buf = appendUint16(buf, uint16(vector))
	lengthOffset = len(buf)
	buf = appendUint16(buf, 0)
	return buf, lengthOffset
}

// patchLength fills in the length field at lengthOffset, counting from
// the byte following it through the current end of buf.
func patchLength(buf []byte, lengthOffset int) {
	length := len(buf) - lengthOffset - 2
	binary.BigEndian.PutUint16(buf[lengthOffset:lengthOffset+2], uint16(length))
}

func appendUint16(buf []byte, v uint16) []byte {
	return append(buf, byte(v>>8), byte(v))
}

func appendUint32(buf []byte, v uint32) []byte {
	return append(buf, byte(v>>24), byte(v>>16), byte(v>>8), byte(v))
}

func appendUint64(buf []byte, v uint64) []byte {
	return append(buf,
		byte(v>>56), byte(v>>48), byte(v>>40), byte(v>>32),
		byte(v>>24), byte(v>>16), byte(v>>8), byte(v))
}

// readVectorLength reads a layer's vector and length field, and returns
// the body slice the length field promises (bounds-checked against what
// is actually present).
func readVectorLength(data []byte) (vector Vector, body []byte, err error) {
	if len(data) < 4 {
		return 0, nil, fmt.Errorf("codec: layer header: %w", otp.ErrShortBuffer)
	}
	vector = Vector(binary.BigEndian.Uint16(data[0:2]))
	length := int(binary.BigEndian.Uint16(data[2:4]))
	if len(data) < 4+length {
		return 0, nil, fmt.Errorf("codec: layer body (vector %04x): %w", vector, otp.ErrInvalidLength)
	}
	return vector, data[4 : 4+length], nil
}

// EncodeName renders name as a fixed 32-byte, NUL-padded UTF-8 field. If
// name's UTF-8 encoding is longer than otp.MaxNameBytes it is truncated at
// the last valid rune boundary at or before that length (ANSI E1.59 §6).
func EncodeName(name string) [otp.MaxNameBytes]byte {
	var out [otp.MaxNameBytes]byte
	b := []byte(name)
	if len(b) > otp.MaxNameBytes {
		b = truncateUTF8(b, otp.MaxNameBytes)
	}
	copy(out[:], b)
	return out
}

// truncateUTF8 cuts b to at most n bytes without splitting a multi-byte
// rune: it backs off while the next byte would be a UTF-8 continuation
// byte (10xxxxxx).
func truncateUTF8(b []byte, n int) []byte {
	if n >= len(b) {
		return b
	}
	for n > 0 && b[n]&0xC0 == 0x80 {
		n--
	}
	return b[:n]
}

// DecodeName trims trailing NUL bytes from a fixed 32-byte name field.
func DecodeName(raw [otp.MaxNameBytes]byte) string {
	end := len(raw)
	for end > 0 && raw[end-1] == 0 {
		end--
	}
	return string(raw[:end])
}
