package store

import (
	"testing"

	"par-api/internal/assemble"

	"github.com/stretchr/testify/require"
	geom "github.com/twpayne/go-geom"
)

func TestEWKBHexRoundTrip(t *testing.T) {
	ls := geom.NewLineStringFlat(geom.XY, []float64{-743100.5, -1043809.25, -743050, -1043800})
	ls.SetSRID(5514)
	h, err := EncodeEWKBHex(ls)
	require.NoError(t, err)
	require.NotEmpty(t, h)

	g, err := DecodeEWKBHex(h)
	require.NoError(t, err)
	back, ok := g.(*geom.LineString)
	require.True(t, ok)
	require.Equal(t, ls.FlatCoords(), back.FlatCoords())
	require.Equal(t, 5514, back.SRID())
}

func TestDecodeEWKBHexRejectsGarbage(t *testing.T) {
	_, err := DecodeEWKBHex("zz")
	require.Error(t, err)
	_, err = DecodeEWKBHex("0101")
	require.Error(t, err)
}

// 坐标透传：解码出的顶点链与写入值逐位一致，不得有任何舍入
func TestSegmentsFromLineString(t *testing.T) {
	ls := geom.NewLineStringFlat(geom.XY, []float64{0, 0, 1.0000000001, 2, 3, 4})
	segs, err := segmentsFromGeom(ls)
	require.NoError(t, err)
	require.Len(t, segs, 1)
	require.Equal(t, assemble.Segment{
		{X: 0, Y: 0}, {X: 1.0000000001, Y: 2}, {X: 3, Y: 4},
	}, segs[0])
}

// 三维存储只取 X/Y，数值本身不动
func TestSegmentsFromLineStringXYZ(t *testing.T) {
	ls := geom.NewLineStringFlat(geom.XYZ, []float64{0, 0, 100, 1, 2, 200})
	segs, err := segmentsFromGeom(ls)
	require.NoError(t, err)
	require.Equal(t, assemble.Segment{{X: 0, Y: 0}, {X: 1, Y: 2}}, segs[0])
}

func TestSegmentsFromMultiLineString(t *testing.T) {
	mls := geom.NewMultiLineStringFlat(geom.XY, []float64{0, 0, 1, 1, 1, 1, 2, 2}, []int{4, 8})
	segs, err := segmentsFromGeom(mls)
	require.NoError(t, err)
	require.Len(t, segs, 2)
	require.Equal(t, assemble.Segment{{X: 0, Y: 0}, {X: 1, Y: 1}}, segs[0])
	require.Equal(t, assemble.Segment{{X: 1, Y: 1}, {X: 2, Y: 2}}, segs[1])
}

func TestSegmentsFromUnsupportedGeometry(t *testing.T) {
	_, err := segmentsFromGeom(geom.NewPointFlat(geom.XY, []float64{1, 2}))
	require.Error(t, err)
}
