package builder

import (
	"context"
	"errors"
	"testing"

	"par-api/internal/assemble"

	"github.com/stretchr/testify/require"
	geom "github.com/twpayne/go-geom"
)

func p(x, y float64) assemble.Point { return assemble.Point{X: x, Y: y} }

func squareSegs(x0, y0, x1, y1 float64) assemble.Segments {
	return assemble.Segments{
		{p(x0, y0), p(x1, y0)},
		{p(x1, y0), p(x1, y1)},
		{p(x1, y1), p(x0, y1)},
		{p(x0, y1), p(x0, y0)},
	}
}

type fakeSource struct{ ids []int64 }

func (f *fakeSource) ListParcelIDs(context.Context) ([]int64, error) { return f.ids, nil }

type fakeProvider struct {
	segs map[int64]assemble.Segments
	err  error
}

func (f *fakeProvider) SegmentsFor(_ context.Context, parID int64) (assemble.Segments, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.segs[parID], nil
}

type fakeSink struct {
	begins  int
	commits int
	writes  map[int64]*geom.Polygon
	wErr    error
}

func newFakeSink() *fakeSink { return &fakeSink{writes: map[int64]*geom.Polygon{}} }

func (f *fakeSink) Begin(context.Context) error { f.begins++; return nil }
func (f *fakeSink) Commit() error               { f.commits++; return nil }
func (f *fakeSink) Write(_ context.Context, parID int64, poly *geom.Polygon) error {
	if f.wErr != nil {
		return f.wErr
	}
	f.writes[parID] = poly
	return nil
}

func TestRunAllBuildsParcels(t *testing.T) {
	// 1 号：普通方形；2 号：外环+洞
	segs := map[int64]assemble.Segments{
		1: squareSegs(0, 0, 1, 1),
		2: append(squareSegs(0, 0, 4, 4), squareSegs(1, 1, 3, 3)...),
	}
	sink := newFakeSink()
	rep, err := RunAll(context.Background(), &fakeSource{ids: []int64{1, 2}},
		&fakeProvider{segs: segs}, sink, nil, Options{})
	require.NoError(t, err)
	require.Equal(t, 2, rep.Processed)
	require.Equal(t, 2, rep.Written)
	require.Empty(t, rep.Unclosed)
	require.Equal(t, 1, sink.writes[1].NumLinearRings())
	require.Equal(t, 2, sink.writes[2].NumLinearRings())
}

func TestRunAllRecordsUnclosedAndContinues(t *testing.T) {
	segs := map[int64]assemble.Segments{
		1: {{p(0, 0), p(1, 0)}, {p(1, 0), p(1, 1)}}, // 闭不上
		2: squareSegs(0, 0, 1, 1),
		3: append(squareSegs(0, 0, 1, 1), squareSegs(10, 10, 11, 11)...), // 两环不嵌套，判洞失败
	}
	sink := newFakeSink()
	rep, err := RunAll(context.Background(), &fakeSource{ids: []int64{1, 2, 3}},
		&fakeProvider{segs: segs}, sink, nil, Options{})
	require.NoError(t, err)
	require.Equal(t, 3, rep.Processed)
	require.Equal(t, []int64{1, 3}, rep.Unclosed)
	// 缺省策略下失败地块也有占位行，几何为 NULL
	require.Equal(t, 3, rep.Written)
	require.Contains(t, sink.writes, int64(1))
	require.Nil(t, sink.writes[1])
	require.NotNil(t, sink.writes[2])
	require.Nil(t, sink.writes[3])
}

// 混入零顶点界线的地块按几何失败记账，批次照常推进
func TestRunAllDegenerateSegmentDoesNotAbortBatch(t *testing.T) {
	segs := map[int64]assemble.Segments{
		1: {{}},
		2: squareSegs(0, 0, 1, 1),
	}
	sink := newFakeSink()
	rep, err := RunAll(context.Background(), &fakeSource{ids: []int64{1, 2}},
		&fakeProvider{segs: segs}, sink, nil, Options{})
	require.NoError(t, err)
	require.Equal(t, 2, rep.Processed)
	require.Equal(t, []int64{1}, rep.Unclosed)
	require.Nil(t, sink.writes[1])
	require.NotNil(t, sink.writes[2])
}

func TestRunAllSkipUnclosedPolicy(t *testing.T) {
	segs := map[int64]assemble.Segments{
		1: {{p(0, 0), p(1, 0)}},
		2: squareSegs(0, 0, 1, 1),
	}
	sink := newFakeSink()
	rep, err := RunAll(context.Background(), &fakeSource{ids: []int64{1, 2}},
		&fakeProvider{segs: segs}, sink, nil, Options{SkipUnclosed: true})
	require.NoError(t, err)
	require.Equal(t, []int64{1}, rep.Unclosed)
	require.Equal(t, 1, rep.Written)
	require.NotContains(t, sink.writes, int64(1))
}

func TestRunAllLimit(t *testing.T) {
	segs := map[int64]assemble.Segments{}
	var ids []int64
	for i := int64(1); i <= 5; i++ {
		segs[i] = squareSegs(float64(i), 0, float64(i)+1, 1)
		ids = append(ids, i)
	}
	sink := newFakeSink()
	rep, err := RunAll(context.Background(), &fakeSource{ids: ids},
		&fakeProvider{segs: segs}, sink, nil, Options{Limit: 3})
	require.NoError(t, err)
	require.Equal(t, 3, rep.Processed)
	require.Len(t, sink.writes, 3)
}

func TestRunAllBatchCommits(t *testing.T) {
	segs := map[int64]assemble.Segments{}
	var ids []int64
	for i := int64(1); i <= 5; i++ {
		segs[i] = squareSegs(float64(i), 0, float64(i)+1, 1)
		ids = append(ids, i)
	}
	sink := newFakeSink()
	_, err := RunAll(context.Background(), &fakeSource{ids: ids},
		&fakeProvider{segs: segs}, sink, nil, Options{BatchSize: 2})
	require.NoError(t, err)
	// 5 行按 2 条一批：2 次批内提交 + 1 次收尾提交，每次提交后立即开新事务
	require.Equal(t, 3, sink.commits)
	require.Equal(t, 3, sink.begins)
}

func TestRunAllProviderErrorIsFatal(t *testing.T) {
	boom := errors.New("hp table gone")
	sink := newFakeSink()
	rep, err := RunAll(context.Background(), &fakeSource{ids: []int64{1, 2}},
		&fakeProvider{err: boom}, sink, nil, Options{})
	require.ErrorIs(t, err, boom)
	require.Nil(t, rep)
}

func TestRunAllSinkErrorIsFatal(t *testing.T) {
	boom := errors.New("disk full")
	sink := newFakeSink()
	sink.wErr = boom
	_, err := RunAll(context.Background(), &fakeSource{ids: []int64{1}},
		&fakeProvider{segs: map[int64]assemble.Segments{1: squareSegs(0, 0, 1, 1)}},
		sink, nil, Options{})
	require.ErrorIs(t, err, boom)
}

func TestRunAllConcurrentWorkersMatchSequential(t *testing.T) {
	segs := map[int64]assemble.Segments{}
	var ids []int64
	for i := int64(1); i <= 40; i++ {
		if i%7 == 0 {
			segs[i] = assemble.Segments{{p(0, 0), p(1, 1)}} // 悬空，必失败
		} else {
			segs[i] = squareSegs(float64(i), 0, float64(i)+1, 1)
		}
		ids = append(ids, i)
	}
	seqSink := newFakeSink()
	seqRep, err := RunAll(context.Background(), &fakeSource{ids: ids},
		&fakeProvider{segs: segs}, seqSink, nil, Options{})
	require.NoError(t, err)

	conSink := newFakeSink()
	conRep, err := RunAll(context.Background(), &fakeSource{ids: ids},
		&fakeProvider{segs: segs}, conSink, nil, Options{Workers: 4})
	require.NoError(t, err)

	require.Equal(t, seqRep.Processed, conRep.Processed)
	require.Equal(t, seqRep.Written, conRep.Written)
	require.Equal(t, seqRep.Unclosed, conRep.Unclosed)
	require.Len(t, conSink.writes, len(seqSink.writes))
}
