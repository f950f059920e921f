package assemble

// 文档注释：外环/洞判别
// 背景：多环时需要确定哪一环是外边界；这里沿用包围盒极值法：
// 分别找出 minX 最小、maxX 最大、minY 最小、maxY 最大的环下标，
// 四者一致即为外环，其余全部视为洞。
// 约束：该方法假定环要么严格嵌套要么不相交，属于已知的几何近似
// （未用点入环判定校验嵌套关系）；极值相同时保留先出现的下标。
// 返回：外环与洞列表；四项极值不一致时返回 ErrAmbiguousRings。
func Classify(rings []Ring) (Ring, []Ring, error) {
	switch len(rings) {
	case 0:
		return nil, nil, ErrNoRings
	case 1:
		return rings[0], nil, nil
	}

	envs := make([]Envelope, len(rings))
	for i, r := range rings {
		envs[i] = RingEnvelope(r)
	}
	iMinX, iMaxX, iMinY, iMaxY := 0, 0, 0, 0
	for i := 1; i < len(envs); i++ {
		if envs[i].MinX < envs[iMinX].MinX {
			iMinX = i
		}
		if envs[i].MaxX > envs[iMaxX].MaxX {
			iMaxX = i
		}
		if envs[i].MinY < envs[iMinY].MinY {
			iMinY = i
		}
		if envs[i].MaxY > envs[iMaxY].MaxY {
			iMaxY = i
		}
	}
	if iMinX != iMaxX || iMinX != iMinY || iMinX != iMaxY {
		return nil, nil, ErrAmbiguousRings
	}

	outer := rings[iMinX]
	holes := make([]Ring, 0, len(rings)-1)
	for i, r := range rings {
		if i != iMinX {
			holes = append(holes, r)
		}
	}
	return outer, holes, nil
}
