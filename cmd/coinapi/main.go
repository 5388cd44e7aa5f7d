package main

import (
	"context"
	"flag"
	"fmt"
	"math"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"go.uber.org/zap"

	"coinapi-go/internal/app"
	"coinapi-go/internal/config"
	"coinapi-go/internal/log"
	"coinapi-go/internal/period"
	"coinapi-go/internal/store"
)

func main() {
	var (
		configPath  string
		pairs       string
		interval    time.Duration
		strict      bool
		listPeriods bool
	)
	flag.StringVar(&configPath, "config", "", "配置文件路径，默认使用 configs/config.yaml")
	flag.StringVar(&pairs, "pairs", "", "逗号分隔的交易对，例如 BTC/USD,ETH/USD，默认使用配置")
	flag.DurationVar(&interval, "interval", 0, "期望的采样间隔，例如 40m，会映射到最接近的支持周期")
	flag.BoolVar(&strict, "strict", false, "间隔不是受支持周期时报错而不是近似")
	flag.BoolVar(&listPeriods, "periods", false, "列出支持的周期并退出")
	flag.Parse()

	if listPeriods {
		printPeriods(interval)
		return
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}

	logger, err := log.NewLogger(cfg.Logging, cfg.App.Environment)
	if err != nil {
		fmt.Fprintf(os.Stderr, "初始化日志失败: %v\n", err)
		os.Exit(1)
	}
	defer func(logger *zap.Logger) {
		_ = logger.Sync()
	}(logger)

	sqliteStore, err := store.NewSQLite(cfg.Database)
	if err != nil {
		logger.Error("初始化数据库失败", zap.Error(err))
		os.Exit(1)
	}
	defer func() {
		if closeErr := sqliteStore.Close(); closeErr != nil {
			logger.Warn("关闭数据库失败", zap.Error(closeErr))
		}
	}()

	application, err := app.New(cfg, logger, sqliteStore)
	if err != nil {
		logger.Error("初始化客户端失败", zap.Error(err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	opts := app.Options{Interval: interval, Strict: strict}
	if pairs != "" {
		opts.Pairs = strings.Split(pairs, ",")
	}

	reports, err := application.Run(ctx, opts)
	printReports(reports)
	if err != nil {
		logger.Error("同步历史汇率失败", zap.Error(err))
		os.Exit(1)
	}
}

func printPeriods(requested time.Duration) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "PERIOD\tDURATION")
	for _, p := range period.Supported() {
		fmt.Fprintf(w, "%s\t%s\n", p, p.Duration())
	}
	_ = w.Flush()

	if requested > 0 {
		p, err := period.Resolve(requested)
		if err != nil {
			fmt.Printf("\n%s -> %s (%v)\n", requested, p, err)
			return
		}
		fmt.Printf("\n%s -> %s (exact)\n", requested, p)
	}
}

func printReports(reports []app.Report) {
	if len(reports) == 0 {
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "PAIR\tPERIOD\tAPPROX\tROWS\tCLOSE\tCHANGE\tEMA12\tRSI14\tATR14\tERROR")
	for _, r := range reports {
		if r.Err != nil {
			fmt.Fprintf(w, "-\t-\t-\t-\t-\t-\t-\t-\t-\t%v\n", r.Err)
			continue
		}
		key := r.Result.Key
		fmt.Fprintf(w, "%s/%s\t%s\t%t\t%d\t%s\t%s\t%s\t%s\t%s\t\n",
			key.Base, key.Quote, key.Period, r.Result.Approximated, len(r.Result.Data),
			formatFloat(r.Summary.Close), formatPercent(r.Summary.Change),
			formatFloat(r.Summary.EMA12), formatFloat(r.Summary.RSI), formatFloat(r.Summary.ATR.Absolute),
		)
	}
	_ = w.Flush()
}

func formatFloat(v float64) string {
	if math.IsNaN(v) {
		return "n/a"
	}
	return fmt.Sprintf("%.4f", v)
}

func formatPercent(v float64) string {
	if math.IsNaN(v) {
		return "n/a"
	}
	return fmt.Sprintf("%+.2f%%", v*100)
}
