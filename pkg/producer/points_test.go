package producer

import (
	"testing"

	"github.com/stretchr/testify/require"

	otp "github.com/burgrp-go/otp/pkg"
	"github.com/burgrp-go/otp/pkg/modules"
)

func newTestProducer(t *testing.T) *Producer {
	t.Helper()
	return New(Config{Name: "test", CID: otp.NewCID()}, modules.NewRegistry())
}

func TestAddPointRejectsExactDuplicate(t *testing.T) {
	p := newTestProducer(t)
	addr, err := otp.NewAddress(1, 1, 1)
	require.NoError(t, err)

	require.NoError(t, p.AddPoint(addr, 100, "light"))
	err = p.AddPoint(addr, 100, "light")
	require.ErrorIs(t, err, otp.ErrExists)
}

func TestAddPointSameAddressDifferentPriorityAllowed(t *testing.T) {
	p := newTestProducer(t)
	addr, err := otp.NewAddress(1, 1, 1)
	require.NoError(t, err)

	require.NoError(t, p.AddPoint(addr, 100, "light"))
	require.NoError(t, p.AddPoint(addr, 150, "light"))
}

func TestAddModuleImplicitlyAddsAssociate(t *testing.T) {
	p := newTestProducer(t)
	addr, err := otp.NewAddress(1, 1, 1)
	require.NoError(t, err)
	require.NoError(t, p.AddPoint(addr, 100, "light"))

	err = p.AddModule(addr, 100, &modules.PositionVelocityAcceleration{})
	require.NoError(t, err)

	p.mu.RLock()
	op := p.points[pointKey{addr: addr, priority: 100}]
	p.mu.RUnlock()
	require.True(t, op.point.HasModule(otp.ModulePosition))
	require.True(t, op.point.HasModule(otp.ModulePositionVelocityAcceleration))
}

func TestRemoveModuleFailsWhileDependentExists(t *testing.T) {
	p := newTestProducer(t)
	addr, err := otp.NewAddress(1, 1, 1)
	require.NoError(t, err)
	require.NoError(t, p.AddPoint(addr, 100, "light"))
	require.NoError(t, p.AddModule(addr, 100, &modules.PositionVelocityAcceleration{}))

	err = p.RemoveModule(addr, 100, otp.ModulePosition)
	require.ErrorIs(t, err, otp.ErrDependentExists)

	require.NoError(t, p.RemoveModule(addr, 100, otp.ModulePositionVelocityAcceleration))
	require.NoError(t, p.RemoveModule(addr, 100, otp.ModulePosition))
}

func TestAddModuleRejectsDuplicateIdentifier(t *testing.T) {
	p := newTestProducer(t)
	addr, err := otp.NewAddress(1, 1, 1)
	require.NoError(t, err)
	require.NoError(t, p.AddPoint(addr, 100, "light"))
	require.NoError(t, p.AddModule(addr, 100, &modules.Position{}))

	err = p.AddModule(addr, 100, &modules.Position{})
	require.ErrorIs(t, err, otp.ErrModuleExists)
}

func TestRenamePointsAppliesToAllPriorities(t *testing.T) {
	p := newTestProducer(t)
	addr, err := otp.NewAddress(1, 1, 1)
	require.NoError(t, err)
	require.NoError(t, p.AddPoint(addr, 100, "light"))
	require.NoError(t, p.AddPoint(addr, 150, "light"))

	require.NoError(t, p.RenamePoints(addr, "lamp"))

	p.mu.RLock()
	defer p.mu.RUnlock()
	require.Equal(t, "lamp", p.points[pointKey{addr: addr, priority: 100}].point.Name)
	require.Equal(t, "lamp", p.points[pointKey{addr: addr, priority: 150}].point.Name)
}
