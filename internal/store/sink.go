package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"par-api/internal/logger"

	"github.com/lib/pq"
	geom "github.com/twpayne/go-geom"
)

// 文档注释：地块几何写入
// 背景：批量构建按固定条数分组提交事务，平衡写入延迟与事务内存；
// 驱动层保证 Begin/Write/Commit 串行调用，这里不做并发防护。
// 约束：同一地块号重复写入按 UPSERT 覆盖，便于重跑；几何为 NULL 表示该地块未能闭合
// （是否写占位行由驱动层策略决定）。

// Begin：开启写入事务并预编译插入语句
func (s *Store) Begin(ctx context.Context) error {
	if s.tx != nil {
		return fmt.Errorf("store: transaction already open")
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: begin: %w", err)
	}
	q := fmt.Sprintf(
		"INSERT INTO %s(id_par, geom) VALUES($1, $2) ON CONFLICT (id_par) DO UPDATE SET geom = EXCLUDED.geom, built_at = now()",
		pq.QuoteIdentifier(s.cfg.ParTable),
	)
	stmt, err := tx.PrepareContext(ctx, q)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("store: prepare insert into %s: %w", s.cfg.ParTable, err)
	}
	s.tx = tx
	s.stmt = stmt
	return nil
}

// Write：写入一行地块；poly 为 nil 时几何列置 NULL
func (s *Store) Write(ctx context.Context, parID int64, poly *geom.Polygon) error {
	if s.tx == nil {
		return fmt.Errorf("store: write outside transaction")
	}
	var val sql.NullString
	if poly != nil {
		poly.SetSRID(s.cfg.SRID)
		h, err := EncodeEWKBHex(poly)
		if err != nil {
			return fmt.Errorf("store: encode parcel %d: %w", parID, err)
		}
		val = sql.NullString{String: h, Valid: true}
	}
	if _, err := s.stmt.ExecContext(ctx, parID, val); err != nil {
		return fmt.Errorf("store: write parcel %d: %w", parID, err)
	}
	return nil
}

// Commit：提交当前批次；随后由驱动层立即 Begin 下一批
func (s *Store) Commit() error {
	if s.tx == nil {
		return nil
	}
	_ = s.stmt.Close()
	err := s.tx.Commit()
	s.tx = nil
	s.stmt = nil
	if err != nil {
		return fmt.Errorf("store: commit: %w", err)
	}
	return nil
}

// EachParcel：按序遍历已构建的地块行，供导出工具使用；未闭合行的几何回调为 nil
func (s *Store) EachParcel(ctx context.Context, fn func(parID int64, g geom.T) error) error {
	q := fmt.Sprintf("SELECT id_par, geom FROM %s ORDER BY id_par", pq.QuoteIdentifier(s.cfg.ParTable))
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return fmt.Errorf("store: scan %s: %w", s.cfg.ParTable, err)
	}
	defer rows.Close()
	for rows.Next() {
		var id int64
		var raw sql.NullString
		if err := rows.Scan(&id, &raw); err != nil {
			return err
		}
		var g geom.T
		if raw.Valid {
			if g, err = DecodeEWKBHex(raw.String); err != nil {
				return fmt.Errorf("store: decode parcel %d: %w", id, err)
			}
		}
		if err := fn(id, g); err != nil {
			return err
		}
	}
	return rows.Err()
}

// RecordRun：落一条构建汇总，便于核对历史批次
func (s *Store) RecordRun(ctx context.Context, started, finished time.Time, processed, written, unclosed int) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO _par_build_runs(started_at, finished_at, processed, written, unclosed) VALUES($1, $2, $3, $4, $5)",
		started, finished, processed, written, unclosed,
	)
	if err != nil {
		return fmt.Errorf("store: record run: %w", err)
	}
	logger.L().Debug("store_run_recorded", "processed", processed, "written", written, "unclosed", unclosed)
	return nil
}
