// 包 builder：按地块号批量驱动“取段 → 拼环 → 判洞 → 组面 → 落库”的流水线
package builder

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"par-api/internal/assemble"
	"par-api/internal/logger"
	"par-api/internal/metrics"

	"github.com/redis/go-redis/v9"
	geom "github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/ewkb"
)

// IDSource：枚举待构建的地块号（去重，顺序任意）
type IDSource interface {
	ListParcelIDs(ctx context.Context) ([]int64, error)
}

// SegmentProvider：按地块号取回其全部界线，坐标须原样透传
type SegmentProvider interface {
	SegmentsFor(ctx context.Context, parID int64) (assemble.Segments, error)
}

// Sink：地块几何落库；Begin/Write/Commit 由驱动层串行调用
type Sink interface {
	Begin(ctx context.Context) error
	Write(ctx context.Context, parID int64, poly *geom.Polygon) error
	Commit() error
}

// Options：批次参数
type Options struct {
	// Limit：限制处理的地块数，0 为不限（供抽样与试跑）
	Limit int
	// BatchSize：每多少行提交一次事务，0 取缺省 2000
	// 背景：分组提交以事务中途失败丢失未提交行为代价换取吞吐，属有意取舍
	BatchSize int
	// Workers：取段+拼装的并发度，0/1 为顺序执行
	// 约束：单个地块内部的拼装始终是顺序算法；并发只发生在地块之间，落库仍单线程串行
	Workers int
	// SkipUnclosed：true 时失败地块不写占位行；false 时写 NULL 几何行保证一号一行
	SkipUnclosed bool
	// CacheTTL：redis 几何缓存的过期时长，0 取缺省 24h
	CacheTTL time.Duration
}

// Report：批次汇总
type Report struct {
	Processed int
	Written   int
	CacheHits int
	Unclosed  []int64
}

type result struct {
	parID    int64
	poly     *geom.Polygon
	fromHit  bool
	unclosed bool
	err      error
}

// 文档注释：批量构建入口
// 背景：地块之间互不依赖，取段与拼装可并发；几何性失败（环未闭合、外环不可判别）
// 记入未闭合清单后继续下一地块，协作方故障（查询/写库出错）属结构性问题，整批终止。
// 返回：处理与写入计数及未闭合地块号清单；结构性故障返回 error。
func RunAll(ctx context.Context, ids IDSource, provider SegmentProvider, sink Sink, rc *redis.Client, opts Options) (*Report, error) {
	if opts.BatchSize <= 0 {
		opts.BatchSize = 2000
	}
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 24 * time.Hour
	}

	all, err := ids.ListParcelIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("builder: list ids: %w", err)
	}
	if opts.Limit > 0 && opts.Limit < len(all) {
		all = all[:opts.Limit]
	}
	logger.L().Info("build_start", "parcels", len(all), "workers", opts.Workers, "batch", opts.BatchSize)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	idCh := make(chan int64)
	resCh := make(chan result, opts.Workers)
	var wg sync.WaitGroup
	for w := 0; w < opts.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for parID := range idCh {
				resCh <- buildOne(ctx, provider, rc, parID, opts.CacheTTL)
			}
		}()
	}
	go func() {
		defer close(idCh)
		for _, parID := range all {
			select {
			case idCh <- parID:
			case <-ctx.Done():
				return
			}
		}
	}()
	go func() {
		wg.Wait()
		close(resCh)
	}()

	if err := sink.Begin(ctx); err != nil {
		cancel()
		for range resCh {
		}
		return nil, err
	}
	rep := &Report{}
	pending := 0
	var runErr error
	for r := range resCh {
		if runErr != nil {
			continue // 结构性故障后仅排空通道，不再写入
		}
		if r.err != nil {
			runErr = r.err
			cancel()
			continue
		}
		rep.Processed++
		if r.fromHit {
			rep.CacheHits++
		}
		if r.unclosed {
			rep.Unclosed = append(rep.Unclosed, r.parID)
			metrics.ParcelsUnclosedTotal.Inc()
			if opts.SkipUnclosed {
				continue
			}
		} else {
			metrics.ParcelsBuiltTotal.Inc()
		}
		if err := sink.Write(ctx, r.parID, r.poly); err != nil {
			runErr = err
			cancel()
			continue
		}
		rep.Written++
		metrics.RowsWrittenTotal.Inc()
		pending++
		if pending >= opts.BatchSize {
			if err := sink.Commit(); err != nil {
				runErr = err
				cancel()
				continue
			}
			pending = 0
			logger.L().Debug("build_batch_committed", "written", rep.Written)
			if err := sink.Begin(ctx); err != nil {
				runErr = err
				cancel()
			}
		}
	}
	if runErr != nil {
		return nil, runErr
	}
	if err := sink.Commit(); err != nil {
		return nil, err
	}
	sort.Slice(rep.Unclosed, func(i, j int) bool { return rep.Unclosed[i] < rep.Unclosed[j] })
	logger.L().Info("build_done", "processed", rep.Processed, "written", rep.Written,
		"unclosed", len(rep.Unclosed), "cache_hits", rep.CacheHits)
	return rep, nil
}

// buildOne：单个地块的取段与拼装
// 背景：命中缓存时跳过拼装直接复用既有几何；几何性失败不缓存，重跑仍会重试
func buildOne(ctx context.Context, provider SegmentProvider, rc *redis.Client, parID int64, ttl time.Duration) result {
	start := time.Now()
	key := fmt.Sprintf("par:%d", parID)
	if rc != nil {
		if b, err := rc.Get(ctx, key).Bytes(); err == nil && len(b) > 0 {
			if g, err := ewkb.Unmarshal(b); err == nil {
				if poly, ok := g.(*geom.Polygon); ok {
					metrics.CacheHitsTotal.Inc()
					return result{parID: parID, poly: poly, fromHit: true}
				}
			}
			// 缓存内容不可用时当作未命中，走正常拼装覆盖
		}
		metrics.CacheMissesTotal.Inc()
	}

	segs, err := provider.SegmentsFor(ctx, parID)
	if err != nil {
		return result{parID: parID, err: err}
	}
	metrics.SegmentsPerParcel.Observe(float64(len(segs)))

	poly, err := assembleParcel(segs)
	if err != nil {
		if isGeometryFailure(err) {
			logger.L().Debug("build_parcel_unclosed", "par_id", parID, "err", err)
			return result{parID: parID, unclosed: true}
		}
		return result{parID: parID, err: err}
	}
	metrics.AssembleDurationMs.Observe(float64(time.Since(start).Milliseconds()))

	if rc != nil {
		if b, err := ewkb.Marshal(poly, ewkb.NDR); err == nil {
			rc.Set(ctx, key, b, ttl)
		}
	}
	return result{parID: parID, poly: poly}
}

// assembleParcel：拼环、判洞、组面三步串联
func assembleParcel(segs assemble.Segments) (*geom.Polygon, error) {
	rings, err := assemble.Assemble(segs)
	if err != nil {
		return nil, err
	}
	if len(rings) == 0 {
		return nil, assemble.ErrNoRings
	}
	outer, holes, err := assemble.Classify(rings)
	if err != nil {
		return nil, err
	}
	return assemble.BuildPolygon(outer, holes)
}

// isGeometryFailure：区分单地块的几何性失败与协作方故障
func isGeometryFailure(err error) bool {
	return errors.Is(err, assemble.ErrRingNotClosed) ||
		errors.Is(err, assemble.ErrAmbiguousRings) ||
		errors.Is(err, assemble.ErrNoRings) ||
		errors.Is(err, assemble.ErrBadSegment)
}
