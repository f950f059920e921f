// 文档注释：导出已构建的地块几何
// 背景：便于人工核对与下游系统接入；逐行输出（GeoJSON 为行分隔 Feature），
// 未闭合地块保留占位行、几何为空。
// 约束：EXPORT_FORMAT 取 wkt|geojson|ewkb，缺省 wkt；EXPORT_OUT 缺省标准输出。
package main

import (
	"bufio"
	"context"
	"io"
	"os"

	"par-api/internal/export"
	"par-api/internal/logger"
	"par-api/internal/store"
	"par-api/internal/utils"

	"github.com/joho/godotenv"
	geom "github.com/twpayne/go-geom"
)

func main() {
	_ = godotenv.Load(".env")
	l := logger.Setup()

	format, err := export.ParseFormat(os.Getenv("EXPORT_FORMAT"))
	if err != nil {
		l.Error("export_format_error", "err", err)
		os.Exit(1)
	}
	r, err := export.NewRenderer(format)
	if err != nil {
		l.Error("export_renderer_error", "err", err)
		os.Exit(1)
	}

	cfg := store.DefaultConfig()
	if v := os.Getenv("PAR_TABLE"); v != "" {
		cfg.ParTable = v
	}
	db, err := utils.OpenPostgres(utils.BuildPostgresDSNFromEnv())
	if err != nil {
		l.Error("db_open_error", "err", err)
		os.Exit(1)
	}
	st := store.AttachDB(db, cfg)
	defer st.Close()

	var out io.Writer = os.Stdout
	if name := os.Getenv("EXPORT_OUT"); name != "" {
		f, err := os.Create(name)
		if err != nil {
			l.Error("export_open_error", "err", err)
			os.Exit(1)
		}
		defer f.Close()
		out = f
	}
	w := bufio.NewWriter(out)
	defer w.Flush()

	count := 0
	err = st.EachParcel(context.Background(), func(parID int64, g geom.T) error {
		line, err := r.Render(parID, g)
		if err != nil {
			return err
		}
		if _, err := w.WriteString(line); err != nil {
			return err
		}
		if err := w.WriteByte('\n'); err != nil {
			return err
		}
		count++
		return nil
	})
	if err != nil {
		l.Error("export_error", "err", err)
		os.Exit(1)
	}
	l.Info("export_done", "format", format.String(), "rows", count)
}
