package config

import (
	"os"
	"path/filepath"
	"runtime"

	"github.com/spf13/viper"
)

// Config 保存导出引擎的所有配置
type Config struct {
	OutputDir   string `mapstructure:"output_dir"`   // 导出结果目录
	TemplateDir string `mapstructure:"template_dir"` // 模板根目录
	StorageDir  string `mapstructure:"storage_dir"`  // 成功结果的归档目录

	DefaultFormat string `mapstructure:"default_format"` // word | html | pdf

	WatermarkText string `mapstructure:"watermark_text"` // 默认水印文案

	MaxWorkers int `mapstructure:"max_workers"` // 批量导出并行度上限

	ChromePath string `mapstructure:"chrome_path"` // PDF 打印用的浏览器路径，空则自动探测

	PerfPageThreshold int     `mapstructure:"perf_page_threshold"` // 性能告警页数阈值
	PerfTimeThreshold float64 `mapstructure:"perf_time_threshold"` // 性能告警耗时阈值（秒）

	Debug   bool `mapstructure:"debug"`
	Verbose bool `mapstructure:"verbose"`
}

// LoadConfig 从文件加载配置
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()

	// 设置默认值
	setDefaults(v)

	// 如果配置路径已指定，则直接使用
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		// 查找家目录中的配置文件
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}

		v.AddConfigPath(home)
		v.AddConfigPath(".")
		v.SetConfigName(".docexport")
		v.SetConfigType("yaml")
	}

	// 读取环境变量
	v.AutomaticEnv()
	v.SetEnvPrefix("DOCEXPORT")

	// 读取配置文件
	if err := v.ReadInConfig(); err != nil {
		// 如果找不到配置文件，则使用默认值
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	if config.MaxWorkers <= 0 {
		config.MaxWorkers = runtime.NumCPU()
	}

	return &config, nil
}

// NewDefaultConfig 创建一个新的默认配置
func NewDefaultConfig() *Config {
	return &Config{
		OutputDir:         "exports",
		TemplateDir:       "templates",
		StorageDir:        "storage",
		DefaultFormat:     "word",
		WatermarkText:     "内部使用，禁止外传",
		MaxWorkers:        runtime.NumCPU(),
		PerfPageThreshold: 100,
		PerfTimeThreshold: 10.0,
	}
}

func setDefaults(v *viper.Viper) {
	def := NewDefaultConfig()
	v.SetDefault("output_dir", def.OutputDir)
	v.SetDefault("template_dir", def.TemplateDir)
	v.SetDefault("storage_dir", def.StorageDir)
	v.SetDefault("default_format", def.DefaultFormat)
	v.SetDefault("watermark_text", def.WatermarkText)
	v.SetDefault("max_workers", 0)
	v.SetDefault("chrome_path", "")
	v.SetDefault("perf_page_threshold", def.PerfPageThreshold)
	v.SetDefault("perf_time_threshold", def.PerfTimeThreshold)
	v.SetDefault("debug", false)
	v.SetDefault("verbose", false)
}

// EnsureDirs 创建配置指向的各个目录。
func (c *Config) EnsureDirs() error {
	for _, dir := range []string{c.OutputDir, c.TemplateDir, c.StorageDir} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.MkdirAll(filepath.Join(c.TemplateDir, "metadata"), 0o755)
}
