package codec

import (
	"testing"

	"github.com/stretchr/testify/require"

	otp "github.com/burgrp-go/otp/pkg"
	"github.com/burgrp-go/otp/pkg/modules"
)

func mustAddr(t *testing.T, system uint16, group, point uint32) otp.Address {
	t.Helper()
	addr, err := otp.NewAddress(system, group, point)
	require.NoError(t, err)
	return addr
}

func TestOTPLayerRoundTrip(t *testing.T) {
	cid := otp.NewCID()
	l := &OTPLayer{
		Vector:        VectorOTPTransform,
		SourceCID:     cid,
		FolioNumber:   7,
		Page:          1,
		LastPage:      2,
		ComponentName: "test-producer",
		Body:          []byte{0x01, 0x02, 0x03},
	}
	data := l.Encode()

	decoded, err := DecodeOTPLayer(data)
	require.NoError(t, err)
	require.Equal(t, cid, decoded.SourceCID)
	require.Equal(t, otp.FolioNumber(7), decoded.FolioNumber)
	require.Equal(t, uint16(1), decoded.Page)
	require.Equal(t, uint16(2), decoded.LastPage)
	require.Equal(t, "test-producer", decoded.ComponentName)
	require.Equal(t, []byte{0x01, 0x02, 0x03}, decoded.Body)
}

func TestDecodeOTPLayerRejectsBadPacketIdentifier(t *testing.T) {
	l := &OTPLayer{Vector: VectorOTPTransform, ComponentName: "x"}
	data := l.Encode()
	data[0] ^= 0xFF

	_, err := DecodeOTPLayer(data)
	require.ErrorIs(t, err, otp.ErrInvalidPacketID)
}

func TestDecodeOTPLayerRejectsShortBuffer(t *testing.T) {
	_, err := DecodeOTPLayer([]byte{0x01, 0x02})
	require.ErrorIs(t, err, otp.ErrShortBuffer)
}

func TestNameEncodeDecodeRoundTrip(t *testing.T) {
	name := EncodeName("lamp-1")
	require.Equal(t, "lamp-1", DecodeName(name))
}

func TestNameEncodeTruncatesAtMaxLength(t *testing.T) {
	long := ""
	for i := 0; i < otp.MaxNameBytes+10; i++ {
		long += "a"
	}
	name := EncodeName(long)
	decoded := DecodeName(name)
	require.Len(t, decoded, otp.MaxNameBytes)
}

func TestTransformLayerRoundTrip(t *testing.T) {
	registry := modules.NewRegistry()
	addr := mustAddr(t, 1, 1, 1)
	pt, err := otp.NewPoint(addr, 100, "")
	require.NoError(t, err)
	pt.Modules[otp.ModulePosition] = &modules.Position{X: 1000, Y: 2000, Z: 3000}

	body := EncodeTransformLayer(&TransformLayer{System: 1, FullSet: true, Points: []*otp.Point{pt}})

	decoded, errs, err := DecodeTransformLayer(body, registry)
	require.NoError(t, err)
	require.Empty(t, errs)
	require.True(t, decoded.FullSet)
	require.Equal(t, uint8(1), decoded.System)
	require.Len(t, decoded.Points, 1)

	got := decoded.Points[0]
	require.Equal(t, addr.Group, got.Address.Group)
	require.Equal(t, addr.Point, got.Address.Point)
	require.Equal(t, uint8(1), got.Address.System)

	gotPos, ok := got.Modules[otp.ModulePosition].(*modules.Position)
	require.True(t, ok)
	require.Equal(t, int32(1000), gotPos.X)
	require.Equal(t, int32(2000), gotPos.Y)
	require.Equal(t, int32(3000), gotPos.Z)
}

func TestTransformLayerSkipsUnknownModule(t *testing.T) {
	registry := modules.NewRegistry()
	addr := mustAddr(t, 1, 1, 1)
	pt, err := otp.NewPoint(addr, 100, "")
	require.NoError(t, err)
	pt.Modules[otp.ModulePosition] = &modules.Position{X: 1}
	unknown := otp.ModuleIdentifier{ManufacturerID: 0xFFFF, ModuleNumber: 0xFFFF}
	pt.Modules[unknown] = &modules.CBORModule{ID: unknown, Payload: map[string]any{"k": 1}}

	body := EncodeTransformLayer(&TransformLayer{System: 1, FullSet: true, Points: []*otp.Point{pt}})

	decoded, errs, err := DecodeTransformLayer(body, registry)
	require.NoError(t, err)
	require.Empty(t, errs)
	require.Len(t, decoded.Points[0].Modules, 1)
	_, known := decoded.Points[0].Modules[otp.ModulePosition]
	require.True(t, known)
}

func TestModuleAdvertisementRoundTrip(t *testing.T) {
	ids := []otp.ModuleIdentifier{otp.ModulePosition, otp.ModuleRotation}
	data, err := EncodeModuleAdvertisement(ids)
	require.NoError(t, err)

	decoded, err := DecodeModuleAdvertisement(data)
	require.NoError(t, err)
	require.Equal(t, ids, decoded)
}

func TestSystemAdvertisementRequestHasNoSystems(t *testing.T) {
	data, err := EncodeSystemAdvertisement(false, nil)
	require.NoError(t, err)

	isResponse, systems, invalid, err := DecodeSystemAdvertisement(data)
	require.NoError(t, err)
	require.False(t, isResponse)
	require.Empty(t, systems)
	require.Empty(t, invalid)
}

func TestSystemAdvertisementResponseRoundTrip(t *testing.T) {
	data, err := EncodeSystemAdvertisement(true, []uint8{1, 5, 200})
	require.NoError(t, err)

	isResponse, systems, invalid, err := DecodeSystemAdvertisement(data)
	require.NoError(t, err)
	require.True(t, isResponse)
	require.Equal(t, []uint8{1, 5, 200}, systems)
	require.Empty(t, invalid)
}

func TestNameAdvertisementResponseRoundTrip(t *testing.T) {
	addr := mustAddr(t, 1, 1, 1)
	records := []AddressPointDescription{{Address: addr, Name: "lamp-1"}}
	data, err := EncodeNameAdvertisement(true, records)
	require.NoError(t, err)

	isResponse, decoded, err := DecodeNameAdvertisement(data)
	require.NoError(t, err)
	require.True(t, isResponse)
	require.Len(t, decoded, 1)
	require.Equal(t, addr, decoded[0].Address)
	require.Equal(t, "lamp-1", decoded[0].Name)
}

func TestAdvertisementLayerRoundTrip(t *testing.T) {
	inner, err := EncodeSystemAdvertisement(true, []uint8{1})
	require.NoError(t, err)
	body := EncodeAdvertisementLayer(VectorAdvertSystem, inner)

	decoded, err := DecodeAdvertisementLayer(body)
	require.NoError(t, err)
	require.Equal(t, VectorAdvertSystem, decoded.Vector)
	require.Equal(t, inner, decoded.Body)
}

func TestAdvertisementLayerRejectsUnknownVector(t *testing.T) {
	body := EncodeAdvertisementLayer(Vector(0x9999), []byte{0, 0, 0, 0})

	_, err := DecodeAdvertisementLayer(body)
	require.ErrorIs(t, err, otp.ErrInvalidVector)
}
