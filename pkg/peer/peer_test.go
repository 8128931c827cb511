package peer

import (
	"net"
	"testing"

	"github.com/stretchr/testify/require"

	otp "github.com/burgrp-go/otp/pkg"
)

func testCID(t *testing.T) otp.CID {
	t.Helper()
	return otp.NewCID()
}

func TestObserveIPv4OnlySeesIPv6Upgrades(t *testing.T) {
	p := NewProducerPeer(testCID(t), "prod")
	process := p.Observe(FamilyIPv4, net.ParseIP("10.0.0.1"))
	require.True(t, process)
	require.Equal(t, ModeIPv4Only, p.Mode)
	p.Visibility = Online

	process = p.Observe(FamilyIPv6, net.ParseIP("fe80::1"))
	require.True(t, process)
	require.Equal(t, ModeIPv4And6, p.Mode)
}

func TestObserveIPv6OnlySeesIPv4DropsButUpgrades(t *testing.T) {
	p := NewProducerPeer(testCID(t), "prod")
	p.Observe(FamilyIPv6, net.ParseIP("fe80::1"))
	require.Equal(t, ModeIPv6Only, p.Mode)
	p.Visibility = Online

	process := p.Observe(FamilyIPv4, net.ParseIP("10.0.0.1"))
	require.False(t, process)
	require.Equal(t, ModeIPv4And6, p.Mode)
	require.Len(t, p.Addresses, 2)
}

func TestObserveIPv4And6OnlyAcceptsIPv6(t *testing.T) {
	p := NewProducerPeer(testCID(t), "prod")
	p.Observe(FamilyIPv4, net.ParseIP("10.0.0.1"))
	p.Visibility = Online
	p.Observe(FamilyIPv6, net.ParseIP("fe80::1"))
	require.Equal(t, ModeIPv4And6, p.Mode)

	process := p.Observe(FamilyIPv4, net.ParseIP("10.0.0.2"))
	require.False(t, process)
	process = p.Observe(FamilyIPv6, net.ParseIP("fe80::2"))
	require.True(t, process)
}

func TestObserveOfflineResetsMode(t *testing.T) {
	p := NewProducerPeer(testCID(t), "prod")
	p.Observe(FamilyIPv6, net.ParseIP("fe80::1"))
	p.Visibility = Offline

	process := p.Observe(FamilyIPv4, net.ParseIP("10.0.0.1"))
	require.True(t, process)
	require.Equal(t, ModeIPv4Only, p.Mode)
}

func TestAcceptSequenceNewPeerAlwaysAccepts(t *testing.T) {
	p := NewProducerPeer(testCID(t), "prod")
	accept, dup := p.AcceptSequence(SeqModuleAdvert, 42, 0, 0)
	require.True(t, accept)
	require.False(t, dup)
}

func TestAcceptSequenceDuplicateDropped(t *testing.T) {
	p := NewProducerPeer(testCID(t), "prod")
	p.Visibility = Online
	p.AcceptSequence(SeqModuleAdvert, 10, 0, 0)

	accept, dup := p.AcceptSequence(SeqModuleAdvert, 10, 0, 0)
	require.False(t, accept)
	require.True(t, dup)
}

func TestAcceptSequenceOutOfWindowIncrementsErrors(t *testing.T) {
	p := NewProducerPeer(testCID(t), "prod")
	p.Visibility = Online
	p.AcceptSequence(SeqModuleAdvert, 100, 0, 0)

	accept, dup := p.AcceptSequence(SeqModuleAdvert, 50, 0, 0)
	require.False(t, accept)
	require.False(t, dup)
	require.Equal(t, 1, p.SequenceErrors)
}
