package codec

import (
	"encoding/binary"
	"fmt"

	otp "github.com/burgrp-go/otp/pkg"
)

// packetIdentifier is the 12-byte literal every OTP datagram must start
// with: "OTP-E1.59\0\0\0".
var packetIdentifier = [12]byte{0x4F, 0x54, 0x50, 0x2D, 0x45, 0x31, 0x2E, 0x35, 0x39, 0x00, 0x00, 0x00}

const otpHeaderLength = 79
const otpLengthCountOffset = 16 // bytes before the length field ends: packetID(12)+vector(2)+length(2)

// HeaderOverhead returns the fixed OTP-layer header size in bytes, used
// by callers (producer's datagram assembly) to decide when a body no
// longer fits within MaxUDPPayload.
func HeaderOverhead() int {
	return otpHeaderLength
}

// OTPLayer is the outermost wire layer (ANSI E1.59 §4.1): 79 fixed header
// bytes, then a Vector-selected body (Transform or Advertisement).
type OTPLayer struct {
	Vector        Vector
	SourceCID     otp.CID
	FolioNumber   otp.FolioNumber
	Page          uint16
	LastPage      uint16
	Options       byte
	ComponentName string
	Body          []byte
}

// Encode renders the full 79-byte header plus Body. FooterOptions and
// FooterLength are always zero: this implementation never reserves
// trailing bytes after the body.
func (l *OTPLayer) Encode() []byte {
	buf := make([]byte, 0, otpHeaderLength+len(l.Body))
	buf = append(buf, packetIdentifier[:]...)
	buf, lengthOffset := writeVectorLength(buf, l.Vector)
	buf = append(buf, 0) // footer options
	buf = append(buf, 0) // footer length
	buf = append(buf, l.SourceCID[:]...)
	buf = appendUint32(buf, uint32(l.FolioNumber))
	buf = appendUint16(buf, l.Page)
	buf = appendUint16(buf, l.LastPage)
	buf = append(buf, l.Options)
	buf = append(buf, 0, 0, 0, 0) // reserved
	name := EncodeName(l.ComponentName)
	buf = append(buf, name[:]...)
	buf = append(buf, l.Body...)
	patchLength(buf, lengthOffset)
	return buf
}

// DecodeOTPLayer validates the packet identifier and parses the 79-byte
// header. A packet-identifier mismatch or structurally invalid header is
// reported via a distinguishable sentinel so the caller can drop the
// datagram silently per ANSI E1.59 §7 ("Invalid packet identifier: datagram
// dropped silently").
func DecodeOTPLayer(data []byte) (*OTPLayer, error) {
	if len(data) < otpHeaderLength {
		return nil, fmt.Errorf("codec: otp layer: %w", otp.ErrShortBuffer)
	}
	if [12]byte(data[0:12]) != packetIdentifier {
		return nil, otp.ErrInvalidPacketID
	}

	vector := Vector(binary.BigEndian.Uint16(data[12:14]))
	length := int(binary.BigEndian.Uint16(data[14:16]))
	// footerOptions := data[16]
	footerLength := int(data[17])

	total := otpLengthCountOffset + length + footerLength
	if length < otpHeaderLength-otpLengthCountOffset {
		return nil, fmt.Errorf("codec: otp layer: %w", otp.ErrInvalidLength)
	}
	if total > len(data) {
		return nil, fmt.Errorf("codec: otp layer: %w", otp.ErrShortBuffer)
	}

	l := &OTPLayer{Vector: vector}
	copy(l.SourceCID[:], data[18:34])
	l.FolioNumber = otp.FolioNumber(binary.BigEndian.Uint32(data[34:38]))
	l.Page = binary.BigEndian.Uint16(data[38:40])
	l.LastPage = binary.BigEndian.Uint16(data[40:42])
	l.Options = data[42]
	// data[43:47] reserved
	var nameBuf [otp.MaxNameBytes]byte
	copy(nameBuf[:], data[47:79])
	l.ComponentName = DecodeName(nameBuf)

	bodyEnd := otpLengthCountOffset + length
	l.Body = data[otpHeaderLength:bodyEnd]
	return l, nil
}
