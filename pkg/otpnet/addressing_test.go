package otpnet

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTransformGroupIPv4OffsetsBySystem(t *testing.T) {
	a := DefaultAddressing()
	g1 := a.TransformGroupIPv4(1)
	g2 := a.TransformGroupIPv4(2)
	require.NotEqual(t, g1.String(), g2.String())
	require.Equal(t, "239.159.2.1", g1.String())
	require.Equal(t, "239.159.2.2", g2.String())
}

func TestTransformGroupIPv6OffsetsBySystem(t *testing.T) {
	a := DefaultAddressing()
	g1 := a.TransformGroupIPv6(1)
	g200 := a.TransformGroupIPv6(200)
	require.NotEqual(t, g1.String(), g200.String())
}

func TestMulticastInterfacesReturnsNoError(t *testing.T) {
	_, err := MulticastInterfaces()
	require.NoError(t, err)
}
