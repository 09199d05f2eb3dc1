package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config 应用全局配置结构体
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"db"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Log      LogConfig      `mapstructure:"log"`
	Schedule ScheduleConfig `mapstructure:"schedule"`
	Catalog  CatalogConfig  `mapstructure:"catalog"`
	Export   ExportConfig   `mapstructure:"export"`
	Notice   NoticeConfig   `mapstructure:"notice"`
}

// ServerConfig HTTP 服务器配置
type ServerConfig struct {
	Port         int        `mapstructure:"port"`
	MaxBodyBytes int64      `mapstructure:"max_body_bytes"`
	CORS         CORSConfig `mapstructure:"cors"`
}

// CORSConfig 跨域配置
type CORSConfig struct {
	AllowOrigins []string `mapstructure:"allow_origins"`
}

// DatabaseConfig 数据库配置（postgres | sqlite）
type DatabaseConfig struct {
	Driver          string `mapstructure:"driver"`
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	Name            string `mapstructure:"name"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	SSLMode         string `mapstructure:"sslmode"`
	Timezone        string `mapstructure:"timezone"`
	SQLitePath      string `mapstructure:"sqlite_path"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"` // 分钟
}

// DSN 生成 PostgreSQL 连接字符串
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s TimeZone=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode, c.Timezone,
	)
}

// RedisConfig Redis 配置
// Enabled=false 时会话保存在进程内存中
type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// AuthConfig 会话令牌配置
// AdminToken 为空时关闭运行期目录导入
type AuthConfig struct {
	SessionSecret string        `mapstructure:"session_secret"`
	SessionTTL    time.Duration `mapstructure:"session_ttl"`
	AdminToken    string        `mapstructure:"admin_token"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// ScheduleConfig 课表后端配置
type ScheduleConfig struct {
	Source     string        `mapstructure:"source"` // local | remote
	Shape      string        `mapstructure:"shape"`  // structured | text，仅 local 生效
	BackendURL string        `mapstructure:"backend_url"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

// CatalogConfig 课程目录种子文件
type CatalogConfig struct {
	CoursesFile string `mapstructure:"courses_file"`
	SlotsFile   string `mapstructure:"slots_file"`
}

// ExportConfig 导出配置
type ExportConfig struct {
	ImageFormat string `mapstructure:"image_format"` // png | jpeg | webp
	ICSWeeks    int    `mapstructure:"ics_weeks"`
	SlotMinutes int    `mapstructure:"slot_minutes"`
	Timezone    string `mapstructure:"timezone"`
}

// NoticeConfig 提示消息配置
type NoticeConfig struct {
	TTL time.Duration `mapstructure:"ttl"`
}

// Load 从配置文件与环境变量加载配置
// 优先级：环境变量(.env) > 配置文件 > 默认值
func Load(path string) (*Config, error) {
	// .env 可选，不存在时忽略
	_ = godotenv.Load()

	v := viper.New()

	// ── 默认值 ──
	v.SetDefault("server.port", 5000)
	v.SetDefault("server.max_body_bytes", 10<<20)
	v.SetDefault("server.cors.allow_origins", []string{"*"})

	v.SetDefault("db.driver", "sqlite")
	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.name", "timetable")
	v.SetDefault("db.user", "postgres")
	v.SetDefault("db.password", "")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.timezone", "Asia/Kolkata")
	v.SetDefault("db.sqlite_path", "timetable.db")
	v.SetDefault("db.max_open_conns", 25)
	v.SetDefault("db.max_idle_conns", 10)
	v.SetDefault("db.conn_max_lifetime", 60)

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("auth.session_secret", "")
	v.SetDefault("auth.session_ttl", "12h")
	v.SetDefault("auth.admin_token", "")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("schedule.source", "local")
	v.SetDefault("schedule.shape", "structured")
	v.SetDefault("schedule.backend_url", "")
	v.SetDefault("schedule.timeout", "15s")

	v.SetDefault("catalog.courses_file", "")
	v.SetDefault("catalog.slots_file", "")

	v.SetDefault("export.image_format", "png")
	v.SetDefault("export.ics_weeks", 16)
	v.SetDefault("export.slot_minutes", 55)
	v.SetDefault("export.timezone", "Asia/Kolkata")

	v.SetDefault("notice.ttl", "5s")

	// ── 配置文件 ──
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	// ── 环境变量 ──
	v.SetEnvPrefix("TIMETABLE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate 校验关键配置项
func (c *Config) Validate() error {
	if len(c.Auth.SessionSecret) < 16 {
		return fmt.Errorf("配置校验失败: auth.session_secret 长度不能少于 16 字符")
	}
	if c.Auth.AdminToken != "" && len(c.Auth.AdminToken) < 16 {
		return fmt.Errorf("配置校验失败: auth.admin_token 长度不能少于 16 字符")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("配置校验失败: server.port 必须在 1-65535 之间")
	}
	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("配置校验失败: db.driver 仅支持 postgres / sqlite，实际 %q", c.Database.Driver)
	}
	switch c.Schedule.Source {
	case "local":
	case "remote":
		if c.Schedule.BackendURL == "" {
			return fmt.Errorf("配置校验失败: schedule.source=remote 时 schedule.backend_url 不能为空")
		}
	default:
		return fmt.Errorf("配置校验失败: schedule.source 仅支持 local / remote，实际 %q", c.Schedule.Source)
	}
	switch c.Schedule.Shape {
	case "structured", "text":
	default:
		return fmt.Errorf("配置校验失败: schedule.shape 仅支持 structured / text，实际 %q", c.Schedule.Shape)
	}
	switch c.Export.ImageFormat {
	case "png", "jpeg", "webp":
	default:
		return fmt.Errorf("配置校验失败: export.image_format 仅支持 png / jpeg / webp，实际 %q", c.Export.ImageFormat)
	}
	if c.Notice.TTL <= 0 {
		return fmt.Errorf("配置校验失败: notice.ttl 必须大于 0")
	}
	return nil
}
