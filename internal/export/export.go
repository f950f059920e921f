// 包 export：把已构建的地块几何渲染为文本格式（WKT / GeoJSON / EWKB 十六进制）
// 背景：源体系里导出格式是文档层的一个多态开关；这里按格式标签分发到
// 彼此独立的渲染器实现，不走继承
package export

import (
	"encoding/hex"
	"fmt"
	"strings"

	geom "github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/ewkb"
	"github.com/twpayne/go-geom/encoding/geojson"
	"github.com/twpayne/go-geom/encoding/wkt"
)

// Format：导出格式标签
type Format int

const (
	FormatWKT Format = iota
	FormatGeoJSON
	FormatEWKB
)

// ParseFormat：解析格式名（大小写不敏感）
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "wkt", "":
		return FormatWKT, nil
	case "geojson", "json":
		return FormatGeoJSON, nil
	case "ewkb", "wkb":
		return FormatEWKB, nil
	default:
		return 0, fmt.Errorf("export: unknown format %q (wkt|geojson|ewkb)", s)
	}
}

func (f Format) String() string {
	switch f {
	case FormatWKT:
		return "wkt"
	case FormatGeoJSON:
		return "geojson"
	case FormatEWKB:
		return "ewkb"
	}
	return "unknown"
}

// Renderer：单条地块几何的格式化；g 为 nil 表示未闭合地块的占位行
type Renderer interface {
	Render(parID int64, g geom.T) (string, error)
}

// NewRenderer：按格式标签选择渲染器
func NewRenderer(f Format) (Renderer, error) {
	switch f {
	case FormatWKT:
		return wktRenderer{}, nil
	case FormatGeoJSON:
		return geoJSONRenderer{}, nil
	case FormatEWKB:
		return ewkbRenderer{}, nil
	default:
		return nil, fmt.Errorf("export: no renderer for format %d", f)
	}
}

type wktRenderer struct{}

func (wktRenderer) Render(parID int64, g geom.T) (string, error) {
	if g == nil {
		return fmt.Sprintf("%d\t", parID), nil
	}
	s, err := wkt.Marshal(g)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%d\t%s", parID, s), nil
}

type geoJSONRenderer struct{}

func (geoJSONRenderer) Render(parID int64, g geom.T) (string, error) {
	if g == nil {
		// 未闭合地块：保留行，几何置 null
		return fmt.Sprintf(`{"type":"Feature","geometry":null,"properties":{"id_par":%d}}`, parID), nil
	}
	f := geojson.Feature{
		Geometry:   g,
		Properties: map[string]interface{}{"id_par": parID},
	}
	b, err := f.MarshalJSON()
	if err != nil {
		return "", err
	}
	return string(b), nil
}

type ewkbRenderer struct{}

func (ewkbRenderer) Render(parID int64, g geom.T) (string, error) {
	if g == nil {
		return fmt.Sprintf("%d\t", parID), nil
	}
	b, err := ewkb.Marshal(g, ewkb.NDR)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%d\t%s", parID, hex.EncodeToString(b)), nil
}
