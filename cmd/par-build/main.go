// 程序入口：批量重建地块多边形。读取配置、初始化依赖后交给 internal/builder 驱动；
// 界线输入表需事先由外部工具（如 ogr2ogr）从 VFK 提取件装载
package main

import (
	"context"
	"net/http"
	"os"
	"strconv"
	"time"

	"par-api/internal/builder"
	"par-api/internal/logger"
	"par-api/internal/metrics"
	"par-api/internal/migrate"
	"par-api/internal/store"
	"par-api/internal/utils"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
)

func main() {
	_ = godotenv.Load(".env")
	l := logger.Setup()

	// 配置在此处集中读取并显式下传，构造器一律不碰环境变量
	cfg := store.DefaultConfig()
	if v := os.Getenv("PAR_HP_TABLE"); v != "" {
		cfg.HPTable = v
	}
	if v := os.Getenv("PAR_TABLE"); v != "" {
		cfg.ParTable = v
	}
	if v := os.Getenv("PAR_SRID"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.SRID = n
		}
	}
	opts := builder.Options{
		Limit:        envInt("PAR_LIMIT", 0),
		BatchSize:    envInt("PAR_BATCH", 0),
		Workers:      envInt("PAR_WORKERS", 0),
		SkipUnclosed: os.Getenv("PAR_SKIP_UNCLOSED") == "1",
	}
	l.Debug("config_loaded", "hp", cfg.HPTable, "par", cfg.ParTable, "srid", cfg.SRID,
		"limit", opts.Limit, "workers", opts.Workers)

	db, err := utils.OpenPostgres(utils.BuildPostgresDSNFromEnv())
	if err != nil {
		l.Error("db_open_error", "err", err)
		os.Exit(1)
	}
	st := store.AttachDB(db, cfg)
	defer st.Close()

	if err := migrate.EnsureSchema(db, cfg.ParTable); err != nil {
		l.Error("schema_error", "err", err)
		os.Exit(1)
	}
	if err := migrate.CheckSource(db, cfg.HPTable); err != nil {
		l.Error("source_table_error", "err", err)
		os.Exit(1)
	}

	rc := openRedisFromEnv()
	if rc != nil {
		l.Debug("redis_enabled")
	}

	if addr := os.Getenv("METRICS_ADDR"); addr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler())
		go func() {
			l.Info("metrics_listen", "addr", addr)
			if err := http.ListenAndServe(addr, mux); err != nil {
				l.Error("metrics_listen_error", "err", err)
			}
		}()
	}

	started := time.Now()
	rep, err := builder.RunAll(context.Background(), st, st, st, rc, opts)
	if err != nil {
		l.Error("build_failed", "err", err)
		os.Exit(1)
	}
	if err := st.RecordRun(context.Background(), started, time.Now(),
		rep.Processed, rep.Written, len(rep.Unclosed)); err != nil {
		l.Warn("run_record_error", "err", err)
	}

	l.Info("build_summary",
		"processed", rep.Processed,
		"written", rep.Written,
		"unclosed", len(rep.Unclosed),
		"cache_hits", rep.CacheHits,
		"elapsed", time.Since(started).Round(time.Millisecond).String(),
	)
	for _, parID := range rep.Unclosed {
		l.Warn("parcel_unclosed", "par_id", parID)
	}
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

// openRedisFromEnv：可选的几何缓存；未配置地址时返回 nil 表示关闭
func openRedisFromEnv() *redis.Client {
	host := os.Getenv("REDIS_HOST")
	if host == "" {
		return nil
	}
	port := os.Getenv("REDIS_PORT")
	if port == "" {
		port = "6379"
	}
	db := 0
	if v := os.Getenv("REDIS_DB"); v != "" {
		if n, _ := strconv.Atoi(v); n >= 0 {
			db = n
		}
	}
	return redis.NewClient(&redis.Options{
		Addr:     host + ":" + port,
		Password: os.Getenv("REDIS_PASS"),
		DB:       db,
	})
}
