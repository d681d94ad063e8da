package config

import (
	"encoding/json"
	"os"
	"strconv"
	"time"

	"github.com/fixkme/ticktimer/errs"
	"github.com/tidwall/jsonc"
)

var Config *AppConfig

type AppConfig struct {
	TimerConfig `json:",inline" mapstructure:",inline"`
	LogConfig   `json:",inline" mapstructure:",inline"`
	AdminAddr   string `json:"admin_addr" mapstructure:"admin_addr"` // 管理端口, 为空时不启动
	IsDebug     bool   `json:"is_debug" mapstructure:"is_debug"`
}

type TimerConfig struct {
	Scale          int32 `json:"scale" mapstructure:"scale"`                       // 时间比较的小数位数
	HashLen        int   `json:"hash_len" mapstructure:"hash_len"`                 // 定时器hash字节数
	TickIntervalMs int   `json:"tick_interval_ms" mapstructure:"tick_interval_ms"` // Check间隔 毫秒
	TaskSize       int   `json:"task_size" mapstructure:"task_size"`               // agent任务队列长度
	TimeOffsetMs   int64 `json:"time_offset_ms" mapstructure:"time_offset_ms"`     // 调试用时间偏移 毫秒
}

type LogConfig struct {
	LogPath   string `json:"log_path" mapstructure:"log_path"`
	LogName   string `json:"log_name" mapstructure:"log_name"`
	LogLevel  int    `json:"log_level" mapstructure:"log_level"`
	LogStdOut bool   `json:"log_std_out" mapstructure:"log_std_out"`
}

func Default() *AppConfig {
	return &AppConfig{
		TimerConfig: TimerConfig{
			Scale:          6,
			HashLen:        8,
			TickIntervalMs: 10,
			TaskSize:       1024,
		},
		LogConfig: LogConfig{
			LogName:   "ticktimer",
			LogLevel:  4, // info
			LogStdOut: true,
		},
	}
}

// Load 先读配置文件(json或jsonc, 可为空), 再用fromEnv覆盖, 最后校验
func Load(configFile string, fromEnv func(*AppConfig) error) (*AppConfig, error) {
	conf := Default()
	if len(configFile) > 0 {
		data, err := os.ReadFile(configFile)
		if err != nil {
			return nil, err
		}
		// 允许注释和尾逗号
		if err = json.Unmarshal(jsonc.ToJSON(data), conf); err != nil {
			return nil, err
		}
	}
	if fromEnv != nil {
		if err := fromEnv(conf); err != nil {
			return nil, err
		}
	}
	if err := conf.Validate(); err != nil {
		return nil, err
	}
	Config = conf
	return conf, nil
}

// FromEnv 读取 TICKTIMER_* 环境变量
func FromEnv(conf *AppConfig) error {
	ints := []struct {
		key string
		set func(int64)
	}{
		{"TICKTIMER_SCALE", func(v int64) { conf.Scale = int32(v) }},
		{"TICKTIMER_HASH_LEN", func(v int64) { conf.HashLen = int(v) }},
		{"TICKTIMER_TICK_INTERVAL_MS", func(v int64) { conf.TickIntervalMs = int(v) }},
		{"TICKTIMER_TASK_SIZE", func(v int64) { conf.TaskSize = int(v) }},
		{"TICKTIMER_TIME_OFFSET_MS", func(v int64) { conf.TimeOffsetMs = v }},
		{"TICKTIMER_LOG_LEVEL", func(v int64) { conf.LogLevel = int(v) }},
	}
	for _, it := range ints {
		s, ok := os.LookupEnv(it.key)
		if !ok {
			continue
		}
		v, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return errs.InvalidArgument.Printf("%s=%q", it.key, s)
		}
		it.set(v)
	}
	if s, ok := os.LookupEnv("TICKTIMER_ADMIN_ADDR"); ok {
		conf.AdminAddr = s
	}
	if s, ok := os.LookupEnv("TICKTIMER_LOG_PATH"); ok {
		conf.LogPath = s
	}
	if s, ok := os.LookupEnv("TICKTIMER_LOG_STD_OUT"); ok {
		b, err := strconv.ParseBool(s)
		if err != nil {
			return errs.InvalidArgument.Printf("TICKTIMER_LOG_STD_OUT=%q", s)
		}
		conf.LogStdOut = b
	}
	return nil
}

func (conf *AppConfig) Validate() error {
	switch {
	case conf.Scale < 0:
		return errs.InvalidArgument.Printf("scale=%d", conf.Scale)
	case conf.HashLen < 1:
		return errs.InvalidArgument.Printf("hash_len=%d", conf.HashLen)
	case conf.TickIntervalMs < 1:
		return errs.InvalidArgument.Printf("tick_interval_ms=%d", conf.TickIntervalMs)
	case conf.LogLevel < 0 || conf.LogLevel > 6:
		return errs.InvalidArgument.Printf("log_level=%d", conf.LogLevel)
	}
	return nil
}

func (conf *AppConfig) TickInterval() time.Duration {
	return time.Duration(conf.TickIntervalMs) * time.Millisecond
}

func (conf *AppConfig) TimeOffset() time.Duration {
	return time.Duration(conf.TimeOffsetMs) * time.Millisecond
}

func (conf *AppConfig) JsonFormat() string {
	if conf == nil {
		return "{}"
	}
	data, err := json.MarshalIndent(conf, "", "  ")
	if err != nil {
		return ""
	}
	return string(data)
}
