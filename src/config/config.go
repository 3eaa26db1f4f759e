package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
)

// Config 应用程序运行配置
type Config struct {
	DataFile   string `json:"data_file" validate:"required"`                                    // 预约记录文件(.csv / .xlsx)
	SheetName  string `json:"sheet_name"`                                                      // xlsx 输入时使用的工作表
	Encoding   string `json:"encoding" validate:"omitempty,oneof=utf-8 iso-8859-1 windows-1252"` // 源文件字符集
	ReportDir  string `json:"report_dir"`                                                      // 为空时不生成 xlsx 报告
	LogName    string `json:"log_name" validate:"required"`
	LogLevel   string `json:"log_level" validate:"omitempty,oneof=debug info warning error"`
	LogMaxSize string `json:"log_max_size"`

	// Watch re-runs the pipeline whenever DataFile is rewritten.
	Watch bool `json:"watch"`
	// Schedule is a robfig/cron spec, e.g. "@every 1h". Empty disables it.
	Schedule string `json:"schedule"`
	// CheckInterval is used when Schedule is empty but a periodic run is still wanted.
	CheckInterval Duration `json:"check_interval"`
}

// DataConfig 数据清洗相关的映射配置
type DataConfig struct {
	Rename          map[string]string `json:"rename"`
	AgeBins         []int             `json:"age_bins" validate:"min=2"`
	AgeLabels       []string          `json:"age_labels" validate:"min=1"`
	TimestampLayout []string          `json:"timestamp_layouts" validate:"min=1,dive,required"`
}

var (
	once               sync.Once
	instance           *Config
	dataConfigInstance *DataConfig

	validate = validator.New()
)

// Default returns the configuration used when no config files are present.
func Default() *Config {
	return &Config{
		DataFile:   "noshowappointments-kagglev2-may-2016.csv",
		SheetName:  "Sheet1",
		Encoding:   "utf-8",
		ReportDir:  "reports",
		LogName:    "app.log",
		LogLevel:   "info",
		LogMaxSize: "10 * 1024 * 1024",
	}
}

// DefaultDataConfig returns the fixed cleaning rules of the dataset.
func DefaultDataConfig() *DataConfig {
	return &DataConfig{
		Rename: map[string]string{
			"hipertension": "hypertension",
			"no-show":      "no_show",
			"handcap":      "handicap",
		},
		AgeBins:   []int{0, 17, 36, 56, 115},
		AgeLabels: []string{"Childhood", "Adult", "Middle Age Adult", "Elderly"},
		TimestampLayout: []string{
			time.RFC3339,
			"2006-01-02T15:04:05",
			"2006-01-02 15:04:05",
			"2006-01-02",
		},
	}
}

// LoadConfig 加载配置文件，只在首次调用时读取
func LoadConfig(jsonFolder, jsonFile, dataJsonFile string) (*Config, *DataConfig, error) {
	var err error
	once.Do(func() {
		instance, dataConfigInstance, err = loadConfigs(jsonFolder, jsonFile, dataJsonFile)
	})
	return instance, dataConfigInstance, err
}

func loadConfigs(jsonFolder, jsonFile, dataJsonFile string) (*Config, *DataConfig, error) {
	configFile := filepath.Join(jsonFolder, jsonFile)
	dataConfigFile := filepath.Join(jsonFolder, dataJsonFile)

	configData, err := readFile(configFile)
	if err != nil {
		return nil, nil, fmt.Errorf("read config: %w", err)
	}

	dataConfigData, err := readFile(dataConfigFile)
	if err != nil {
		return nil, nil, fmt.Errorf("read data config: %w", err)
	}

	cfgChan := make(chan *Config, 1)
	dcfgChan := make(chan *DataConfig, 1)
	errChan := make(chan error, 2)

	go parseConfig(configData, cfgChan, errChan)
	go parseDataConfig(dataConfigData, dcfgChan, errChan)

	cfg, dcfg, err := waitForResults(cfgChan, dcfgChan, errChan)
	if err != nil {
		return nil, nil, err
	}

	return cfg, dcfg, nil
}

func readFile(filePath string) ([]byte, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("cannot read file %s: %w", filePath, err)
	}
	return data, nil
}

// parseConfig 在默认值之上解析 Config
func parseConfig(data []byte, resultChan chan<- *Config, errChan chan<- error) {
	cfg := Default()
	if err := json.Unmarshal(data, cfg); err != nil {
		errChan <- fmt.Errorf("parse Config: %w", err)
		return
	}
	if err := validate.Struct(cfg); err != nil {
		errChan <- fmt.Errorf("validate Config: %w", err)
		return
	}
	resultChan <- cfg
}

func parseDataConfig(data []byte, resultChan chan<- *DataConfig, errChan chan<- error) {
	dcfg := DefaultDataConfig()
	if err := json.Unmarshal(data, dcfg); err != nil {
		errChan <- fmt.Errorf("parse DataConfig: %w", err)
		return
	}
	if err := dcfg.check(); err != nil {
		errChan <- fmt.Errorf("validate DataConfig: %w", err)
		return
	}
	resultChan <- dcfg
}

func waitForResults(
	cfgChan <-chan *Config,
	dcfgChan <-chan *DataConfig,
	errChan <-chan error,
) (*Config, *DataConfig, error) {
	var (
		cfg  *Config
		dcfg *DataConfig
		errs []error
	)

	for i := 0; i < 2; i++ {
		select {
		case c := <-cfgChan:
			cfg = c
		case d := <-dcfgChan:
			dcfg = d
		case err := <-errChan:
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return nil, nil, errors.Join(errs...)
	}

	if cfg == nil || dcfg == nil {
		return nil, nil, fmt.Errorf("config partially loaded")
	}

	return cfg, dcfg, nil
}

// check 校验分箱边界与标签数量一致且严格递增
func (dc *DataConfig) check() error {
	if err := validate.Struct(dc); err != nil {
		return err
	}
	if len(dc.AgeLabels) != len(dc.AgeBins)-1 {
		return fmt.Errorf("age_labels needs %d entries, got %d", len(dc.AgeBins)-1, len(dc.AgeLabels))
	}
	for i := 1; i < len(dc.AgeBins); i++ {
		if dc.AgeBins[i] <= dc.AgeBins[i-1] {
			return fmt.Errorf("age_bins must be strictly increasing: %v", dc.AgeBins)
		}
	}
	return nil
}

// MaxLogSize evaluates LogMaxSize ("10 * 1024 * 1024") into bytes.
// Zero means rotation is disabled.
func (c *Config) MaxLogSize() int64 {
	if strings.TrimSpace(c.LogMaxSize) == "" {
		return 0
	}
	var result int64 = 1
	for _, part := range strings.Split(c.LogMaxSize, "*") {
		var n int64
		if _, err := fmt.Sscan(strings.TrimSpace(part), &n); err != nil {
			return 0
		}
		result *= n
	}
	return result
}

// Duration 是time.Duration的自定义包装类型
// 用于支持JSON序列化和反序列化
type Duration time.Duration

// UnmarshalJSON 实现json.Unmarshaler接口
func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	dur, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(dur)
	return nil
}

// MarshalJSON 实现json.Marshaler接口
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// RenameFor returns the target name for a normalized column name.
func (dc *DataConfig) RenameFor(colName string) (string, bool) {
	v, ok := dc.Rename[colName]
	return v, ok
}
