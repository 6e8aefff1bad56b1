package mariadb

import (
	"fmt"
	"time"
)

// Config holds the connection settings for one MariaDB/MySQL database.
type Config struct {
	Connection        Connection        `yaml:"connection"`
	ConnectionDetails ConnectionDetails `yaml:"connectionDetails"`
}

// Connection identifies the server and database plus DSN parameters.
type Connection struct {
	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DbName   string `yaml:"dbName"`

	// Charset defaults to utf8mb4.
	Charset string `yaml:"charset"`
	// ParseTime scans DATE and DATETIME into time.Time.
	ParseTime bool `yaml:"parseTime"`
	// Loc defaults to Local.
	Loc string `yaml:"loc"`

	TLS          string `yaml:"tls"`
	Timeout      string `yaml:"timeout"`
	ReadTimeout  string `yaml:"readTimeout"`
	WriteTimeout string `yaml:"writeTimeout"`
}

// ConnectionDetails are handed to database/sql unchanged. Zero values fall back
// to MaxOpenConns 50, MaxIdleConns 25 and ConnMaxLifetime one minute.
type ConnectionDetails struct {
	MaxOpenConns    int           `yaml:"maxOpenConns"`
	MaxIdleConns    int           `yaml:"maxIdleConns"`
	ConnMaxLifetime time.Duration `yaml:"connMaxLifetime"`
}

// DSN renders the go-sql-driver/mysql data source name.
// Format: username:password@tcp(host:port)/dbname?param=value
func (c Connection) DSN() string {
	charset := c.Charset
	if charset == "" {
		charset = "utf8mb4"
	}
	parseTime := "False"
	if c.ParseTime {
		parseTime = "True"
	}
	loc := c.Loc
	if loc == "" {
		loc = "Local"
	}

	dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=%s&parseTime=%s&loc=%s",
		c.User, c.Password, c.Host, c.Port, c.DbName, charset, parseTime, loc)

	if c.TLS != "" {
		dsn += "&tls=" + c.TLS
	}
	if c.Timeout != "" {
		dsn += "&timeout=" + c.Timeout
	}
	if c.ReadTimeout != "" {
		dsn += "&readTimeout=" + c.ReadTimeout
	}
	if c.WriteTimeout != "" {
		dsn += "&writeTimeout=" + c.WriteTimeout
	}
	return dsn
}

// Logger is the subset of logger.Logger the connection monitor reports through.
type Logger interface {
	Info(msg string, err error, fields ...map[string]interface{})
	Error(msg string, err error, fields ...map[string]interface{})
}
