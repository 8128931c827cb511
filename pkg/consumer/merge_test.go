package consumer

import (
	"testing"

	"github.com/stretchr/testify/require"

	otp "github.com/burgrp-go/otp/pkg"
	"github.com/burgrp-go/otp/pkg/modules"
)

func mustAddr(t *testing.T) otp.Address {
	t.Helper()
	a, err := otp.NewAddress(1, 1, 1)
	require.NoError(t, err)
	return a
}

func TestMergeAddressSingleContributorTakenVerbatim(t *testing.T) {
	addr := mustAddr(t)
	pt, err := otp.NewPoint(addr, 100, "lamp")
	require.NoError(t, err)
	pt.Modules[otp.ModulePosition] = &modules.Position{X: 10, Y: 20, Z: 30}

	merged, ok := mergeAddress([]*otp.Point{pt})
	require.True(t, ok)
	require.Same(t, pt, merged)
}

func TestMergeAddressSelectsHighestPrioritySubset(t *testing.T) {
	addr := mustAddr(t)
	low, err := otp.NewPoint(addr, 50, "lamp")
	require.NoError(t, err)
	low.Modules[otp.ModulePosition] = &modules.Position{X: 999}

	high, err := otp.NewPoint(addr, 150, "lamp")
	require.NoError(t, err)
	high.Modules[otp.ModulePosition] = &modules.Position{X: 10}

	merged, ok := mergeAddress([]*otp.Point{low, high})
	require.True(t, ok)
	require.Same(t, high, merged)
}

func TestMergeAddressAveragesNumericModulesAtEqualPriority(t *testing.T) {
	addr := mustAddr(t)
	a, err := otp.NewPoint(addr, 100, "lamp")
	require.NoError(t, err)
	a.Modules[otp.ModulePosition] = &modules.Position{X: 0, Y: 0, Z: 0}

	b, err := otp.NewPoint(addr, 100, "lamp")
	require.NoError(t, err)
	b.Modules[otp.ModulePosition] = &modules.Position{X: 2000, Y: 2000, Z: 2000}

	merged, ok := mergeAddress([]*otp.Point{a, b})
	require.True(t, ok)
	pos := merged.Modules[otp.ModulePosition].(*modules.Position)
	require.Equal(t, int32(1000), pos.X)
	require.True(t, merged.Cid.IsUndefined())
}

func TestMergeAddressExcludesOnParentDisagreement(t *testing.T) {
	addr := mustAddr(t)
	parentA, err := otp.NewAddress(1, 1, 1)
	require.NoError(t, err)
	parentB, err := otp.NewAddress(1, 1, 2)
	require.NoError(t, err)

	a, err := otp.NewPoint(addr, 100, "lamp")
	require.NoError(t, err)
	a.Modules[otp.ModuleParent] = &modules.Parent{Address: parentA}

	b, err := otp.NewPoint(addr, 100, "lamp")
	require.NoError(t, err)
	b.Modules[otp.ModuleParent] = &modules.Parent{Address: parentB}

	_, ok := mergeAddress([]*otp.Point{a, b})
	require.False(t, ok)
}
