package codec

import (
	"encoding/binary"
	"fmt"

	otp "github.com/burgrp-go/otp/pkg"
	"github.com/burgrp-go/otp/pkg/modules"
)

// TransformOptionFullSet marks a transform layer as carrying a full point
// set rather than a delta (ANSI E1.59 §4.1).
const TransformOptionFullSet = 0x80

// TransformLayer is the per-system snapshot nested inside an OTP
// transform datagram.
type TransformLayer struct {
	System    uint8
	Timestamp uint64 // microseconds since the producer's time origin
	FullSet   bool
	Points    []*otp.Point
}

// EncodeTransformLayer renders points (which must already have had their
// wire priority/name validated by the caller) into a transform layer
// body. It does not itself split across datagrams — see producer's
// assembly path for MTU-aware pagination.
func EncodeTransformLayer(layer *TransformLayer) []byte {
	buf := make([]byte, 0, 128)
	buf, lengthOffset := writeVectorLength(buf, VectorTransformPoint)
	buf = append(buf, layer.System)
	buf = appendUint64(buf, layer.Timestamp)
	options := byte(0)
	if layer.FullSet {
		options = TransformOptionFullSet
	}
	buf = append(buf, options)
	buf = append(buf, 0, 0, 0, 0) // reserved
	for _, p := range layer.Points {
		buf = append(buf, encodePointLayer(p)...)
	}
	patchLength(buf, lengthOffset)
	return buf
}

// DecodeTransformLayer parses a transform layer, dispatching module
// decode through registry. Per ANSI E1.59 §4.1's decode policy: an unknown
// module is silently skipped; an invalid-value error in a known module
// is surfaced in errs but does not abort the enclosing point; a
// structurally broken point layer aborts further point parsing but
// already-parsed siblings are still returned.
func DecodeTransformLayer(data []byte, registry *modules.Registry) (*TransformLayer, []error, error) {
	vector, body, err := readVectorLength(data)
	if err != nil {
		return nil, nil, err
	}
	if vector != VectorTransformPoint {
		return nil, nil, fmt.Errorf("codec: transform layer: %w: %04x", otp.ErrInvalidVector, vector)
	}
	if len(body) < 14 {
		return nil, nil, fmt.Errorf("codec: transform layer: %w", otp.ErrShortBuffer)
	}
	layer := &TransformLayer{
		System:    body[0],
		Timestamp: binary.BigEndian.Uint64(body[1:9]),
		FullSet:   body[9]&TransformOptionFullSet != 0,
	}
	rest := body[14:]
	var errs []error
	for len(rest) > 0 {
		point, consumed, perrs, perr := decodePointLayer(rest, registry)
		errs = append(errs, perrs...)
		if point != nil {
			point.Address.System = layer.System
		}
		if perr != nil {
			errs = append(errs, perr)
			break
		}
		layer.Points = append(layer.Points, point)
		rest = rest[consumed:]
	}
	return layer, errs, nil
}

func encodePointLayer(p *otp.Point) []byte {
	buf := make([]byte, 0, 32)
	buf, lengthOffset := writeVectorLength(buf, VectorPointModule)
	buf = append(buf, byte(p.Priority))
	buf = appendUint16(buf, p.Address.Group)
	buf = appendUint32(buf, p.Address.Point)
	buf = appendUint64(buf, p.Timestamp)
	buf = append(buf, 0) // options
	buf = append(buf, 0, 0, 0, 0) // reserved
	for _, id := range p.ModuleIdentifiers() {
		buf = append(buf, encodeModuleLayer(p.Modules[id])...)
	}
	patchLength(buf, lengthOffset)
	return buf
}

// decodePointLayer returns the decoded point, bytes consumed from data
// for this point layer (vector+length header included), any per-module
// value errors, and a structural error that should abort further parsing.
func decodePointLayer(data []byte, registry *modules.Registry) (*otp.Point, int, []error, error) {
	vector, body, err := readVectorLength(data)
	if err != nil {
		return nil, 0, nil, err
	}
	if vector != VectorPointModule {
		return nil, 0, nil, fmt.Errorf("codec: point layer: %w: %04x", otp.ErrInvalidVector, vector)
	}
	consumed := 4 + len(body)
	if len(body) < 20 {
		return nil, 0, nil, fmt.Errorf("codec: point layer: %w", otp.ErrShortBuffer)
	}
	priority := otp.Priority(body[0])
	group := binary.BigEndian.Uint16(body[1:3])
	pointNum := binary.BigEndian.Uint32(body[3:7])
	timestamp := binary.BigEndian.Uint64(body[7:15])
	// body[15] options, body[16:20] reserved — no fields defined yet
	addr := otp.Address{System: 0, Group: group, Point: pointNum} // system is filled in by the transform layer's caller
	point, err := otp.NewPoint(addr, priority, "")
	if err != nil {
		return nil, 0, nil, err
	}
	point.Timestamp = timestamp

	rest := body[20:]
	var errs []error
	for len(rest) >= 6 {
		m, consumedModule, valueErr, structuralErr := decodeModuleLayer(rest, registry)
		if structuralErr != nil {
			errs = append(errs, structuralErr)
			break
		}
		if valueErr != nil {
			errs = append(errs, valueErr)
		} else if m != nil {
			point.Modules[m.Identifier()] = m
		}
		rest = rest[consumedModule:]
	}
	return point, consumed, errs, nil
}

func encodeModuleLayer(m otp.Module) []byte {
	id := m.Identifier()
	body := m.Encode()
	buf := make([]byte, 0, 6+len(body))
	buf = appendUint16(buf, id.ManufacturerID)
	lengthOffset := len(buf)
	buf = appendUint16(buf, 0)
	buf = appendUint16(buf, id.ModuleNumber)
	buf = append(buf, body...)
	// module layer's length counts moduleNumber(2) + data, i.e. everything
	// after the length field itself.
	length := len(buf) - lengthOffset - 2
	binary.BigEndian.PutUint16(buf[lengthOffset:lengthOffset+2], uint16(length))
	return buf
}

// decodeModuleLayer decodes one module layer. It returns exactly one of:
// structuralErr (header/length exhausted — caller must abort the
// enclosing point), valueErr (module known but its body failed to
// decode — caller skips this module and continues using consumed), or a
// non-nil m (successfully decoded). Unknown module identifiers produce
// m == nil, valueErr == nil, with consumed set to skip past the module's
// declared length, per ANSI E1.59 §4.1/§7 ("Unknown module: silently
// skipped").
func decodeModuleLayer(data []byte, registry *modules.Registry) (m otp.Module, consumed int, valueErr, structuralErr error) {
	if len(data) < 6 {
		return nil, 0, nil, fmt.Errorf("codec: module layer: %w", otp.ErrShortBuffer)
	}
	manufacturer := binary.BigEndian.Uint16(data[0:2])
	length := int(binary.BigEndian.Uint16(data[2:4]))
	moduleNumber := binary.BigEndian.Uint16(data[4:6])
	total := 4 + length
	if len(data) < total {
		return nil, 0, nil, fmt.Errorf("codec: module layer: %w", otp.ErrShortBuffer)
	}
	id := otp.ModuleIdentifier{ManufacturerID: manufacturer, ModuleNumber: moduleNumber}
	moduleData := data[6:total]

	dec, ok := registry.Lookup(id)
	if !ok {
		return nil, total, nil, nil
	}
	decoded, _, err := dec(moduleData)
	if err != nil {
		return nil, total, fmt.Errorf("codec: module %s: %w", id, err), nil
	}
	return decoded, total, nil, nil
}
