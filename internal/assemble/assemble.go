package assemble

// 文档注释：线段拼环
// 背景：源数据的线段无序且走向任意，只能按端点坐标的精确相等逐段链接；
// 当搜索点在剩余线段中找不到延续时，说明当前环已走完，余下线段属于另一个环
// （洞或多部分边界），于是另起新环继续，直到线段耗尽。
// 约束：扫描是 O(n²) 的朴素遍历，按集合顺序取首个命中（与源行为一致，不做索引优化）；
// 自相交或含重复点的线段不做特殊处理，听凭匹配规则产出结果。
// 返回：全部闭合环；任一环未闭合时返回 ErrRingNotClosed 且不产出环。
func Assemble(segs Segments) ([]Ring, error) {
	if len(segs) == 0 {
		return nil, nil
	}
	// 外部装载的界线表可能混入退化行；顶点数不足的线段按单地块几何失败处理，不让其拖垮整批
	for _, s := range segs {
		if len(s) < 2 {
			return nil, ErrBadSegment
		}
	}
	remaining := make(Segments, len(segs))
	copy(remaining, segs)

	var rings []Ring
	for len(remaining) > 0 {
		// 任取一条（集合中的首条）作为新环的起始子路径，正向全量加入
		cur := make(Ring, 0, len(remaining[0])+8)
		cur = append(cur, remaining[0]...)
		remaining = remaining[1:]

		search := cur[len(cur)-1]
		for len(remaining) > 0 {
			idx, pos := findNext(remaining, search)
			if idx < 0 {
				// 当前环无法再延伸：封存本环（闭合校验统一放到最后），另起新环
				break
			}
			seg := remaining[idx]
			if pos == 0 {
				// 正向：线段走向与环一致，跳过与搜索点重合的首点
				cur = append(cur, seg[1:]...)
			} else {
				// 反向：搜索点命中线段尾端，从倒数第二点倒序加入
				for i := len(seg) - 2; i >= 0; i-- {
					cur = append(cur, seg[i])
				}
			}
			remaining = append(remaining[:idx], remaining[idx+1:]...)
			search = cur[len(cur)-1]
		}
		rings = append(rings, cur)
	}

	for _, r := range rings {
		if !r.Closed() {
			return nil, ErrRingNotClosed
		}
	}
	return rings, nil
}

// findNext：在剩余线段中寻找包含搜索点的首条线段
// 约束：线段内亦按下标序取首次出现位置；下标 0 视为正向命中，其余视为反向命中
func findNext(remaining Segments, search Point) (int, int) {
	for i, seg := range remaining {
		for j, p := range seg {
			if p == search {
				return i, j
			}
		}
	}
	return -1, -1
}
