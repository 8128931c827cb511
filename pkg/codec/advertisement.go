package codec

import (
	"encoding/binary"
	"fmt"

	otp "github.com/burgrp-go/otp/pkg"
)

// responseOptionBit marks a name/system advertisement inner layer as a
// response carrying records; clear means a request.
const responseOptionBit = 0x80

const (
	maxModuleIdentifiersPerDatagram        = 344
	maxAddressPointDescriptionsPerDatagram = 35
	maxSystemNumbersPerDatagram            = 200
)

// AdvertisementLayer wraps the three sub-kinds behind the Advertisement
// layer's own vector+length framing (ANSI E1.59 §4.1).
type AdvertisementLayer struct {
	Vector Vector // VectorAdvertModule | VectorAdvertName | VectorAdvertSystem
	Body   []byte
}

// EncodeAdvertisementLayer frames inner with the advertisement layer's
// vector, length and 4 reserved bytes.
func EncodeAdvertisementLayer(vector Vector, inner []byte) []byte {
	buf := make([]byte, 0, 8+len(inner))
	buf, lengthOffset := writeVectorLength(buf, vector)
	buf = append(buf, 0, 0, 0, 0) // reserved
	buf = append(buf, inner...)
	patchLength(buf, lengthOffset)
	return buf
}

// DecodeAdvertisementLayer parses the advertisement layer header and
// returns its sub-kind and inner body.
func DecodeAdvertisementLayer(data []byte) (*AdvertisementLayer, error) {
	vector, body, err := readVectorLength(data)
	if err != nil {
		return nil, err
	}
	if len(body) < 4 {
		return nil, fmt.Errorf("codec: advertisement layer: %w", otp.ErrShortBuffer)
	}
	switch vector {
	case VectorAdvertModule, VectorAdvertName, VectorAdvertSystem:
	default:
		return nil, fmt.Errorf("codec: advertisement layer: %w: %04x", otp.ErrInvalidVector, vector)
	}
	return &AdvertisementLayer{Vector: vector, Body: body[4:]}, nil
}

// EncodeModuleAdvertisement encodes a module-advertisement inner layer:
// repeated 4-byte module identifiers, at most
// maxModuleIdentifiersPerDatagram per datagram; more identifiers than
// that are rejected with an error. Nothing in this module splits module
// identifiers across pages: the consumer sends no module advertisement
// when this returns an error.
func EncodeModuleAdvertisement(ids []otp.ModuleIdentifier) ([]byte, error) {
	if len(ids) > maxModuleIdentifiersPerDatagram {
		return nil, fmt.Errorf("codec: module advertisement: %d identifiers exceeds per-datagram max %d", len(ids), maxModuleIdentifiersPerDatagram)
	}
	buf := make([]byte, 0, 4*len(ids))
	for _, id := range ids {
		buf = appendUint16(buf, id.ManufacturerID)
		buf = appendUint16(buf, id.ModuleNumber)
	}
	return buf, nil
}

// DecodeModuleAdvertisement decodes a module-advertisement inner layer.
func DecodeModuleAdvertisement(data []byte) ([]otp.ModuleIdentifier, error) {
	if len(data)%4 != 0 {
		return nil, fmt.Errorf("codec: module advertisement: %w", otp.ErrInvalidLength)
	}
	ids := make([]otp.ModuleIdentifier, 0, len(data)/4)
	for i := 0; i < len(data); i += 4 {
		ids = append(ids, otp.ModuleIdentifier{
			ManufacturerID: binary.BigEndian.Uint16(data[i : i+2]),
			ModuleNumber:   binary.BigEndian.Uint16(data[i+2 : i+4]),
		})
	}
	return ids, nil
}

// AddressPointDescription names the point at an address, carried in
// name-advertisement responses.
type AddressPointDescription struct {
	Address otp.Address
	Name    string
}

const addressPointDescriptionLength = 1 + 2 + 4 + otp.MaxNameBytes // 39

// EncodeNameAdvertisement encodes a name-advertisement inner layer: the
// options byte (request vs. response) followed by records when
// responding.
func EncodeNameAdvertisement(isResponse bool, records []AddressPointDescription) ([]byte, error) {
	if isResponse && len(records) > maxAddressPointDescriptionsPerDatagram {
		return nil, fmt.Errorf("codec: name advertisement: %d records exceeds per-datagram max %d", len(records), maxAddressPointDescriptionsPerDatagram)
	}
	buf := make([]byte, 0, 1+addressPointDescriptionLength*len(records))
	options := byte(0)
	if isResponse {
		options = responseOptionBit
	}
	buf = append(buf, options)
	if isResponse {
		for _, r := range records {
			buf = append(buf, byte(r.Address.System))
			buf = appendUint16(buf, r.Address.Group)
			buf = appendUint32(buf, r.Address.Point)
			name := EncodeName(r.Name)
			buf = append(buf, name[:]...)
		}
	}
	return buf, nil
}

// DecodeNameAdvertisement decodes a name-advertisement inner layer,
// returning whether it is a response and, if so, its records.
func DecodeNameAdvertisement(data []byte) (isResponse bool, records []AddressPointDescription, err error) {
	if len(data) < 1 {
		return false, nil, fmt.Errorf("codec: name advertisement: %w", otp.ErrShortBuffer)
	}
	isResponse = data[0]&responseOptionBit != 0
	if !isResponse {
		return false, nil, nil
	}
	body := data[1:]
	if len(body)%addressPointDescriptionLength != 0 {
		return false, nil, fmt.Errorf("codec: name advertisement: %w", otp.ErrInvalidLength)
	}
	for i := 0; i < len(body); i += addressPointDescriptionLength {
		rec := body[i : i+addressPointDescriptionLength]
		addr := otp.Address{
			System: rec[0],
			Group:  binary.BigEndian.Uint16(rec[1:3]),
			Point:  binary.BigEndian.Uint32(rec[3:7]),
		}
		var nameBuf [otp.MaxNameBytes]byte
		copy(nameBuf[:], rec[7:7+otp.MaxNameBytes])
		records = append(records, AddressPointDescription{Address: addr, Name: DecodeName(nameBuf)})
	}
	return true, records, nil
}

// EncodeSystemAdvertisement encodes a system-advertisement inner layer:
// the options byte followed by 1-byte system numbers when responding.
func EncodeSystemAdvertisement(isResponse bool, systems []uint8) ([]byte, error) {
	if isResponse && len(systems) > maxSystemNumbersPerDatagram {
		return nil, fmt.Errorf("codec: system advertisement: %d systems exceeds per-datagram max %d", len(systems), maxSystemNumbersPerDatagram)
	}
	buf := make([]byte, 0, 1+len(systems))
	options := byte(0)
	if isResponse {
		options = responseOptionBit
	}
	buf = append(buf, options)
	if isResponse {
		buf = append(buf, systems...)
	}
	return buf, nil
}

// DecodeSystemAdvertisement decodes a system-advertisement inner layer.
// Individually invalid system numbers are dropped and reported rather
// than aborting the whole record list (ANSI E1.59 §4.1).
func DecodeSystemAdvertisement(data []byte) (isResponse bool, systems []uint8, invalid []error, err error) {
	if len(data) < 1 {
		return false, nil, nil, fmt.Errorf("codec: system advertisement: %w", otp.ErrShortBuffer)
	}
	isResponse = data[0]&responseOptionBit != 0
	if !isResponse {
		return false, nil, nil, nil
	}
	for _, s := range data[1:] {
		if s < otp.MinSystem || s > otp.MaxSystem {
			invalid = append(invalid, fmt.Errorf("codec: system advertisement: system %d: %w", s, otp.ErrInvalidSystem))
			continue
		}
		systems = append(systems, s)
	}
	return true, systems, invalid, nil
}
