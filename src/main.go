package main

import (
	"NoShowInsights/src/config"
	"NoShowInsights/src/datapush"
	"NoShowInsights/src/datasource/file"
	"NoShowInsights/src/processor"
	"NoShowInsights/src/storage"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/robfig/cron"
)

const (
	jsonFolder   = "./config"
	jsonFile     = "config.json"
	dataJsonFile = "dataconfig.json"
)

func main() {
	cfg, dcfg, cfgErr := loadSettings(jsonFolder)
	if cfg == nil {
		log.Fatal("Failed to load config:", cfgErr)
	}

	// 初始化日志系统
	logger, err := storage.NewLogger(cfg.LogName)
	if err != nil {
		log.Fatal("Failed to initialize logger:", err)
	}
	logger.SetConsole(os.Stderr)
	logger.SetLevel(storage.ParseLevel(cfg.LogLevel))
	logger.SetMaxSize(cfg.MaxLogSize())
	if cfgErr != nil {
		logger.Warning("配置文件不存在, 使用默认配置: " + cfgErr.Error())
	}

	a := newApp(cfg, dcfg, logger, os.Stdout)
	if err := a.run(); err != nil {
		logger.Fatal("分析失败: " + err.Error())
		logger.Close()
		os.Exit(1)
	}

	spec := scheduleSpec(cfg)
	if spec == "" && !cfg.Watch {
		logger.Close()
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if spec != "" {
		// 设置定时任务
		c := cron.New()
		err = c.AddFunc(spec, func() {
			logger.Info(fmt.Sprintf("开始定时分析(%s)...", spec))
			if err := a.run(); err != nil {
				logger.Error("定时分析失败: " + err.Error())
			}
		})
		if err != nil {
			logger.Fatal("创建定时任务失败: " + err.Error())
			logger.Close()
			os.Exit(1)
		}
		c.Start()
		defer c.Stop()
		logger.Info(fmt.Sprintf("定时分析已启动(%s)，按Ctrl+C退出", spec))
	}

	if cfg.Watch {
		monitor, err := file.NewFileMonitor(cfg.DataFile)
		if err != nil {
			logger.Fatal("创建文件监控失败: " + err.Error())
			logger.Close()
			os.Exit(1)
		}
		defer monitor.Close()

		go func() {
			err := monitor.Watch(ctx, func(path string) {
				logger.Info("检测到数据文件更新: " + path)
				if err := a.run(); err != nil {
					logger.Error("重新分析失败: " + err.Error())
				}
			})
			if err != nil {
				logger.Error("File monitoring error:" + err.Error())
			}
		}()
		logger.Info("正在监控数据文件: " + cfg.DataFile)
	}

	waitForShutdown(logger, cancel)
}

// loadSettings 读取配置; 配置文件不存在时返回默认配置和原始错误
func loadSettings(folder string) (*config.Config, *config.DataConfig, error) {
	cfg, dcfg, err := config.LoadConfig(folder, jsonFile, dataJsonFile)
	if err == nil {
		return cfg, dcfg, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return config.Default(), config.DefaultDataConfig(), err
	}
	return nil, nil, err
}

// scheduleSpec returns the cron spec for periodic runs, or "" when disabled.
func scheduleSpec(cfg *config.Config) string {
	if cfg.Schedule != "" {
		return cfg.Schedule
	}
	if cfg.CheckInterval > 0 {
		return "@every " + time.Duration(cfg.CheckInterval).String()
	}
	return ""
}

type app struct {
	cfg    *config.Config
	dcfg   *config.DataConfig
	logger *storage.Logger
	sinks  []datapush.Sink
	mu     sync.Mutex // 同一时间只运行一次分析
}

func newApp(cfg *config.Config, dcfg *config.DataConfig, logger *storage.Logger, out io.Writer) *app {
	a := &app{cfg: cfg, dcfg: dcfg, logger: logger}
	a.sinks = append(a.sinks, datapush.NewConsoleSink(out))
	if cfg.ReportDir != "" {
		a.sinks = append(a.sinks, datapush.NewWorkbookSink(cfg.ReportDir))
	}
	return a
}

// run 完整执行一次: 读取 -> 评估 -> 清洗 -> 聚合 -> 输出
func (a *app) run() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	t1 := time.Now()

	// 1. 读取原始数据
	raw, err := file.ReadAppointments(a.cfg.DataFile, file.ReadOptions{
		SheetName: a.cfg.SheetName,
		Encoding:  a.cfg.Encoding,
	})
	if err != nil {
		return err
	}
	a.logger.Logf(storage.INFO, "读取 %s: %d 行", a.cfg.DataFile, raw.Nrow())

	// 2. 数据评估
	assessment, err := processor.Assess(raw, a.dcfg)
	if err != nil {
		return err
	}
	a.logger.Info("数据评估: " + assessment.String())
	if assessment.ZeroAges > 0 {
		a.logger.Logf(storage.DEBUG, "%d 行年龄为 0, 按婴儿保留", assessment.ZeroAges)
	}

	// 3. 数据清洗
	p := processor.NewDataProcessor(raw, a.dcfg)
	cleaning, err := p.CleanData()
	if err != nil {
		return fmt.Errorf("clean data: %w", err)
	}
	if cleaning.InvalidAge > 0 || cleaning.DuplicatePatients > 0 {
		a.logger.Warning("数据清洗: " + cleaning.String())
	} else {
		a.logger.Info("数据清洗: " + cleaning.String())
	}

	metrics, err := p.CalculateMetrics()
	if err != nil {
		return err
	}

	// 4. 聚合
	views, err := processor.BuildViews(p.Frame(), a.dcfg)
	if err != nil {
		return err
	}

	// 5. 输出
	report := &datapush.Report{
		Generated:  time.Now(),
		Source:     a.cfg.DataFile,
		Assessment: assessment,
		Cleaning:   cleaning,
		Metrics:    metrics,
		Sections:   processor.Questions(views),
	}
	if err := datapush.PushAll(report, a.sinks...); err != nil {
		return err
	}
	for _, s := range a.sinks {
		if w, ok := s.(*datapush.WorkbookSink); ok {
			a.logger.Info("报告已保存到: " + w.LastPath())
		}
	}

	a.logger.Logf(storage.INFO, "数据处理时间：%v", time.Since(t1))
	return nil
}

// waitForShutdown 阻塞直到收到退出信号; SIGHUP 时重新打开日志文件
func waitForShutdown(logger *storage.Logger, cancel context.CancelFunc) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(sigChan)

	for sig := range sigChan {
		if sig == syscall.SIGHUP {
			if err := logger.Reopen(); err != nil {
				fmt.Fprintln(os.Stderr, "reopen log:", err)
			}
			logger.Info("Log file reopened")
			continue
		}
		logger.Info("Received signal: " + sig.String() + ", shutting down...")
		cancel()
		logger.Close()
		return
	}
}
