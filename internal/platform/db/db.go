package db

import (
	"database/sql"
	"fmt"
	"os"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"gopkg.in/yaml.v3"
)

const driverName = "mysql"

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
}

type Certs struct {
	Cert string `yaml:"cert"`
	Key  string `yaml:"key"`
}

// LibraryConfig は貸出ドメインの定数をまとめる。
// しきい値や期限はデプロイごとに調整できるようコードに埋め込まない。
type LibraryConfig struct {
	PenaltyAmount       float64 `yaml:"penalty_amount"`
	PenaltyDueDays      int     `yaml:"penalty_due_days"`
	SuspensionThreshold int     `yaml:"suspension_threshold"`
	HoldTTLMinutes      int     `yaml:"hold_ttl_minutes"`
	LoanDueOffsetDays   int     `yaml:"loan_due_offset_days"`
}

type MonitorConfig struct {
	LoanIntervalMinutes       int `yaml:"loan_interval_minutes"`
	SchedulingIntervalMinutes int `yaml:"scheduling_interval_minutes"`
	PenaltyIntervalHours      int `yaml:"penalty_interval_hours"`
}

type Config struct {
	Version     string         `yaml:"version"`
	Mode        string         `yaml:"mode"`
	Addr        string         `yaml:"addr"`
	DB          DatabaseConfig `yaml:"database"`
	Certificate Certs          `yaml:"certificate"`
	Library     LibraryConfig  `yaml:"library"`
	Monitor     MonitorConfig  `yaml:"monitor"`
}

func LoadConfig(path string) (*Config, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("設定ファイルの読み込み失敗: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(buf, &cfg); err != nil {
		return nil, fmt.Errorf("設定ファイルのパース失敗: %w", err)
	}
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Addr == "" {
		c.Addr = ":3333"
	}
	if c.Library.PenaltyAmount <= 0 {
		c.Library.PenaltyAmount = 10
	}
	if c.Library.PenaltyDueDays <= 0 {
		c.Library.PenaltyDueDays = 7
	}
	if c.Library.SuspensionThreshold <= 0 {
		c.Library.SuspensionThreshold = 1
	}
	if c.Library.HoldTTLMinutes <= 0 {
		c.Library.HoldTTLMinutes = 60
	}
	if c.Library.LoanDueOffsetDays <= 0 {
		c.Library.LoanDueOffsetDays = 7
	}
	if c.Monitor.LoanIntervalMinutes <= 0 {
		c.Monitor.LoanIntervalMinutes = 15
	}
	if c.Monitor.SchedulingIntervalMinutes <= 0 {
		c.Monitor.SchedulingIntervalMinutes = 3
	}
	if c.Monitor.PenaltyIntervalHours <= 0 {
		c.Monitor.PenaltyIntervalHours = 24
	}
}

func Connect(c DatabaseConfig) (*sql.DB, error) {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&tls=false&timeout=3s&readTimeout=5s&writeTimeout=5s&loc=UTC",
		c.Username, c.Password, c.Host, c.Port, c.DBName)

	conn, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("接続準備に失敗: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("DB接続に失敗: %w", err)
	}

	// 接続プール（合算がMySQLの max_connections を超えないよう配分する）
	conn.SetMaxOpenConns(80)
	conn.SetMaxIdleConns(20)
	conn.SetConnMaxLifetime(30 * time.Minute)
	conn.SetConnMaxIdleTime(5 * time.Minute)

	return conn, nil
}
