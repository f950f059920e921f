package migrate

import (
	"database/sql"
	"fmt"

	"par-api/internal/logger"

	"github.com/lib/pq"
)

// 背景：首次运行自动创建输出表与批次汇总表，保障后续构建与导出
// 约束：使用 IF NOT EXISTS 避免与既有结构冲突；界线输入表由外部装载，这里只校验不创建
func EnsureSchema(db *sql.DB, parTable string) error {
	stmts := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
            id_par BIGINT PRIMARY KEY,
            geom TEXT,
            built_at TIMESTAMPTZ NOT NULL DEFAULT now()
        )`, pq.QuoteIdentifier(parTable)),
		`CREATE TABLE IF NOT EXISTS _par_build_runs (
            id SERIAL PRIMARY KEY,
            started_at TIMESTAMPTZ NOT NULL,
            finished_at TIMESTAMPTZ NOT NULL,
            processed BIGINT NOT NULL DEFAULT 0,
            written BIGINT NOT NULL DEFAULT 0,
            unclosed BIGINT NOT NULL DEFAULT 0
        )`,
	}
	for i, s := range stmts {
		logger.L().Debug("schema_exec", "idx", i)
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	logger.L().Debug("schema_done")
	return nil
}

// CheckSource：校验界线输入表存在
// 背景：输入表缺失属于配置/装载问题而非单个地块的数据异常，须在批次启动前整体失败
func CheckSource(db *sql.DB, hpTable string) error {
	var reg sql.NullString
	if err := db.QueryRow("SELECT to_regclass($1)", hpTable).Scan(&reg); err != nil {
		return fmt.Errorf("migrate: check source table: %w", err)
	}
	if !reg.Valid {
		return fmt.Errorf("migrate: source table %q not found (load the VFK extract first)", hpTable)
	}
	return nil
}
