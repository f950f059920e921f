// 包 store：提供与 PostgreSQL 的数据访问层，读取界线（HP）并写回地块（PAR）几何
package store

import (
	"context"
	"database/sql"
	"encoding/hex"
	"fmt"
	"strings"

	"par-api/internal/assemble"
	"par-api/internal/logger"

	"github.com/lib/pq"
	geom "github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/ewkb"
)

// Config：存储层显式配置
// 背景：源实现用环境变量在进程内隐式覆盖库名/表名，这里改为构造时显式传入
type Config struct {
	HPTable  string // 界线输入表，外部装载（如 ogr2ogr 导入 VFK 提取件）
	ParTable string // 地块输出表，由 migrate 负责建表
	SRID     int    // 写出几何的坐标系代号，捷克地籍为 5514
}

// DefaultConfig：与源数据约定一致的缺省表名与坐标系
func DefaultConfig() Config {
	return Config{HPTable: "hp", ParTable: "par", SRID: 5514}
}

// Store: 数据库访问入口，持有连接池；写入路径由单个事务串行驱动
type Store struct {
	db  *sql.DB
	cfg Config

	tx   *sql.Tx
	stmt *sql.Stmt
}

// AttachDB: 绑定既有连接池；连接的打开与参数配置由入口层负责
func AttachDB(db *sql.DB, cfg Config) *Store { return &Store{db: db, cfg: cfg} }

// Close: 关闭数据库连接；未提交的写入事务一并回滚
func (s *Store) Close() error {
	if s.tx != nil {
		_ = s.tx.Rollback()
		s.tx = nil
		s.stmt = nil
	}
	return s.db.Close()
}

// ListParcelIDs：枚举全部去重地块号
// 背景：每条界线最多登记左右两个地块号，UNION 自带去重；NULL 侧（图幅边界）剔除
func (s *Store) ListParcelIDs(ctx context.Context) ([]int64, error) {
	q := fmt.Sprintf(
		"SELECT par_id_1 AS id FROM %s WHERE par_id_1 IS NOT NULL UNION SELECT par_id_2 AS id FROM %s WHERE par_id_2 IS NOT NULL",
		pq.QuoteIdentifier(s.cfg.HPTable), pq.QuoteIdentifier(s.cfg.HPTable),
	)
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("store: list parcel ids from %s: %w", s.cfg.HPTable, err)
	}
	defer rows.Close()
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	logger.L().Debug("store_ids_listed", "count", len(ids))
	return ids, nil
}

// SegmentsFor：取出指定地块号的全部界线
// 约束：坐标必须原样透传（不投影、不舍入），环拼装依赖端点坐标精确相等
func (s *Store) SegmentsFor(ctx context.Context, parID int64) (assemble.Segments, error) {
	q := fmt.Sprintf(
		"SELECT geom FROM %s WHERE par_id_1 = $1 OR par_id_2 = $1",
		pq.QuoteIdentifier(s.cfg.HPTable),
	)
	rows, err := s.db.QueryContext(ctx, q, parID)
	if err != nil {
		return nil, fmt.Errorf("store: segments for %d: %w", parID, err)
	}
	defer rows.Close()
	var segs assemble.Segments
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		g, err := DecodeEWKBHex(raw)
		if err != nil {
			return nil, fmt.Errorf("store: decode geometry for %d: %w", parID, err)
		}
		part, err := segmentsFromGeom(g)
		if err != nil {
			return nil, fmt.Errorf("store: geometry for %d: %w", parID, err)
		}
		segs = append(segs, part...)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return segs, nil
}

// segmentsFromGeom：把线类几何摊平成顶点链
// 约束：仅取 X/Y 两维（存储中若带 Z 在最终多边形阶段统一抹平，这里不改动数值本身）
func segmentsFromGeom(g geom.T) (assemble.Segments, error) {
	switch v := g.(type) {
	case *geom.LineString:
		return assemble.Segments{coordsToSegment(v.FlatCoords(), v.Stride())}, nil
	case *geom.LinearRing:
		return assemble.Segments{coordsToSegment(v.FlatCoords(), v.Stride())}, nil
	case *geom.MultiLineString:
		var out assemble.Segments
		for i := 0; i < v.NumLineStrings(); i++ {
			ls := v.LineString(i)
			out = append(out, coordsToSegment(ls.FlatCoords(), ls.Stride()))
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported boundary geometry %T", g)
	}
}

func coordsToSegment(flat []float64, stride int) assemble.Segment {
	seg := make(assemble.Segment, 0, len(flat)/stride)
	for i := 0; i+1 < len(flat); i += stride {
		seg = append(seg, assemble.Point{X: flat[i], Y: flat[i+1]})
	}
	return seg
}

// DecodeEWKBHex：十六进制 EWKB 解码
func DecodeEWKBHex(s string) (geom.T, error) {
	b, err := hex.DecodeString(strings.TrimSpace(s))
	if err != nil {
		return nil, err
	}
	return ewkb.Unmarshal(b)
}

// EncodeEWKBHex：几何编码为十六进制 EWKB（小端）
func EncodeEWKBHex(g geom.T) (string, error) {
	b, err := ewkb.Marshal(g, ewkb.NDR)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
