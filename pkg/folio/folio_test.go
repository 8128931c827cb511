package folio

import (
	"testing"

	"github.com/stretchr/testify/require"

	otp "github.com/burgrp-go/otp/pkg"
)

func mustPoint(t *testing.T, system uint16, group, point uint32) *otp.Point {
	t.Helper()
	addr, err := otp.NewAddress(system, group, point)
	require.NoError(t, err)
	p, err := otp.NewPoint(addr, 100, "")
	require.NoError(t, err)
	return p
}

func TestWindowSinglePageFolioPromotesImmediately(t *testing.T) {
	w := NewWindow()
	pts := []*otp.Point{mustPoint(t, 1, 1, 1)}

	promo, accepted, flushed := w.Accept(1, 0, 0, true, pts)
	require.True(t, accepted)
	require.Nil(t, flushed)
	require.NotNil(t, promo)
	require.True(t, promo.FullSet)
	require.Len(t, promo.Points, 1)
}

func TestWindowMultiPageFolioWaitsForAllPages(t *testing.T) {
	w := NewWindow()
	p0 := []*otp.Point{mustPoint(t, 1, 1, 1)}
	p1 := []*otp.Point{mustPoint(t, 1, 1, 2)}

	promo, accepted, _ := w.Accept(1, 0, 1, true, p0)
	require.True(t, accepted)
	require.Nil(t, promo)

	promo, accepted, _ = w.Accept(1, 1, 1, true, p1)
	require.True(t, accepted)
	require.NotNil(t, promo)
	require.Len(t, promo.Points, 2)
}

func TestWindowOutOfOrderPagesStillComplete(t *testing.T) {
	w := NewWindow()
	p0 := []*otp.Point{mustPoint(t, 1, 1, 1)}
	p1 := []*otp.Point{mustPoint(t, 1, 1, 2)}

	_, accepted, _ := w.Accept(1, 1, 1, true, p1)
	require.True(t, accepted)
	promo, accepted, _ := w.Accept(1, 0, 1, true, p0)
	require.True(t, accepted)
	require.NotNil(t, promo)
	// ordering guarantee: as-if processed 0..=lastPage regardless of
	// arrival order.
	require.Equal(t, uint32(1), promo.Points[0].Address.Point)
	require.Equal(t, uint32(2), promo.Points[1].Address.Point)
}

func TestWindowDuplicatePageDropped(t *testing.T) {
	w := NewWindow()
	p0 := []*otp.Point{mustPoint(t, 1, 1, 1)}

	_, accepted, _ := w.Accept(1, 0, 1, true, p0)
	require.True(t, accepted)
	promo, accepted, _ := w.Accept(1, 0, 1, true, p0)
	require.True(t, accepted)
	require.Nil(t, promo)
}

func TestWindowRejectsOutOfSequenceFolioNumber(t *testing.T) {
	w := NewWindow()
	pts := []*otp.Point{mustPoint(t, 1, 1, 1)}

	_, accepted, _ := w.Accept(100, 0, 0, true, pts)
	require.True(t, accepted)

	// far outside both the forward reach and the backward reorder window
	_, accepted, _ = w.Accept(100-10, 0, 0, true, pts)
	require.False(t, accepted)
}

func TestWindowOverflowFlushesOldestPartial(t *testing.T) {
	w := NewWindow()
	for i := otp.FolioNumber(1); i <= transformFolioWindow; i++ {
		_, accepted, flushed := w.Accept(i, 0, 1, false, []*otp.Point{mustPoint(t, 1, 1, uint32(i))})
		require.True(t, accepted)
		require.Nil(t, flushed)
	}
	// window now holds 5 incomplete (page 0 of 2) delta folios; one more
	// push overflows it and the oldest (folio 1) is flushed partial.
	_, accepted, flushed := w.Accept(transformFolioWindow+1, 0, 1, false, []*otp.Point{mustPoint(t, 1, 1, 99)})
	require.True(t, accepted)
	require.NotNil(t, flushed)
	require.False(t, flushed.FullSet)
}

func TestPointSetFullReplaceThenDelta(t *testing.T) {
	s := NewPointSet()
	s.Apply(&Promotion{FullSet: true, Points: []*otp.Point{mustPoint(t, 1, 1, 1), mustPoint(t, 1, 1, 2)}})
	require.Len(t, s.Points(), 2)

	s.Apply(&Promotion{FullSet: false, Points: []*otp.Point{mustPoint(t, 1, 1, 1)}})
	require.Len(t, s.Points(), 2)
}

func TestPointSetFullReplaceDropsStalePoints(t *testing.T) {
	s := NewPointSet()
	s.Apply(&Promotion{FullSet: true, Points: []*otp.Point{mustPoint(t, 1, 1, 1), mustPoint(t, 1, 1, 2)}})
	s.Apply(&Promotion{FullSet: true, Points: []*otp.Point{mustPoint(t, 1, 1, 1)}})
	require.Len(t, s.Points(), 1)
}
