package assemble

import (
	geom "github.com/twpayne/go-geom"
)

// 文档注释：组装最终多边形
// 背景：上游已完成闭合校验与外环/洞判别，此处仅做值的包装；
// 统一以 XY 布局构造，存储中若带 Z 维在此一律抹平为二维。
// 约束：不再做任何几何校验；SRID 由持久层按配置另行设置。
func BuildPolygon(outer Ring, holes []Ring) (*geom.Polygon, error) {
	poly := geom.NewPolygon(geom.XY)
	if err := poly.Push(ringToLinear(outer)); err != nil {
		return nil, err
	}
	for _, h := range holes {
		if err := poly.Push(ringToLinear(h)); err != nil {
			return nil, err
		}
	}
	return poly, nil
}

func ringToLinear(r Ring) *geom.LinearRing {
	flat := make([]float64, 0, len(r)*2)
	for _, p := range r {
		flat = append(flat, p.X, p.Y)
	}
	return geom.NewLinearRingFlat(geom.XY, flat)
}
