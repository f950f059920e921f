package export

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	geom "github.com/twpayne/go-geom"
)

func testPolygon(t *testing.T) *geom.Polygon {
	t.Helper()
	poly := geom.NewPolygon(geom.XY)
	err := poly.Push(geom.NewLinearRingFlat(geom.XY, []float64{0, 0, 4, 0, 4, 4, 0, 4, 0, 0}))
	require.NoError(t, err)
	return poly
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{
		"wkt":     FormatWKT,
		"":        FormatWKT,
		"GeoJSON": FormatGeoJSON,
		"json":    FormatGeoJSON,
		"EWKB":    FormatEWKB,
		"wkb":     FormatEWKB,
	} {
		got, err := ParseFormat(in)
		require.NoError(t, err, in)
		require.Equal(t, want, got, in)
	}
	_, err := ParseFormat("shapefile")
	require.Error(t, err)
}

func TestWKTRenderer(t *testing.T) {
	r, err := NewRenderer(FormatWKT)
	require.NoError(t, err)
	line, err := r.Render(42, testPolygon(t))
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(line, "42\tPOLYGON"))

	empty, err := r.Render(43, nil)
	require.NoError(t, err)
	require.Equal(t, "43\t", empty)
}

func TestGeoJSONRenderer(t *testing.T) {
	r, err := NewRenderer(FormatGeoJSON)
	require.NoError(t, err)
	line, err := r.Render(42, testPolygon(t))
	require.NoError(t, err)

	var f struct {
		Type     string `json:"type"`
		Geometry struct {
			Type string `json:"type"`
		} `json:"geometry"`
		Properties map[string]float64 `json:"properties"`
	}
	require.NoError(t, json.Unmarshal([]byte(line), &f))
	require.Equal(t, "Feature", f.Type)
	require.Equal(t, "Polygon", f.Geometry.Type)
	require.Equal(t, float64(42), f.Properties["id_par"])

	nullLine, err := r.Render(43, nil)
	require.NoError(t, err)
	require.Contains(t, nullLine, `"geometry":null`)
}

func TestEWKBRendererRoundTrip(t *testing.T) {
	r, err := NewRenderer(FormatEWKB)
	require.NoError(t, err)
	line, err := r.Render(42, testPolygon(t))
	require.NoError(t, err)
	parts := strings.SplitN(line, "\t", 2)
	require.Len(t, parts, 2)
	require.Equal(t, "42", parts[0])
	require.NotEmpty(t, parts[1])
}
