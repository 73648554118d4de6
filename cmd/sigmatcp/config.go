package main

import (
	"time"

	"github.com/aaronwong1989/sigmatcp/comm/logging"
	"github.com/aaronwong1989/sigmatcp/comm/yml_config"
	"github.com/aaronwong1989/sigmatcp/device"
)

var log = logging.GetDefaultLogger()

// Config holds the server settings read from sigmatcp.yaml.
type Config struct {
	Port           int
	Multicore      bool
	MaxCons        int
	MaxFrameLength int // 单帧允许的最大 total_len，超过即断开
	MaxPoolSize    int
	TickDuration   time.Duration
	DeviceTimeout  time.Duration
	NodeId         int32
	Monitor        bool
	Device         device.Config
	Log            logging.Config
}

func setDefaults(c yml_config.YmlConfig) {
	c.SetDefault("port", 8086)
	c.SetDefault("multicore", true)
	c.SetDefault("max-cons", 16)
	c.SetDefault("max-frame-length", 64*1024)
	c.SetDefault("max-pool-size", 256)
	c.SetDefault("tick-duration", time.Minute)
	c.SetDefault("node-id", 1)
	c.SetDefault("monitor", true)
	c.SetDefault("device.kind", "memory")
	c.SetDefault("device.snapshot", "")
	c.SetDefault("device.timeout", 2*time.Second)
	c.SetDefault("device.serial.name", "/dev/ttyUSB0")
	c.SetDefault("device.serial.baud", 115200)
	c.SetDefault("device.serial.read-timeout", 100*time.Millisecond)
	c.SetDefault("log.level", "info")
	c.SetDefault("log.format", "console")
	c.SetDefault("log.file.filename", "")
	c.SetDefault("log.file.max-size", 100)
	c.SetDefault("log.file.max-backups", 5)
	c.SetDefault("log.file.max-age", 30)
	c.SetDefault("log.file.compress", false)
}

// LoadConfig applies defaults and reads every key into a Config.
func LoadConfig(c yml_config.YmlConfig) *Config {
	setDefaults(c)
	return &Config{
		Port:           c.GetInt("port"),
		Multicore:      c.GetBool("multicore"),
		MaxCons:        c.GetInt("max-cons"),
		MaxFrameLength: c.GetInt("max-frame-length"),
		MaxPoolSize:    c.GetInt("max-pool-size"),
		TickDuration:   c.GetDuration("tick-duration"),
		DeviceTimeout:  c.GetDuration("device.timeout"),
		NodeId:         c.GetInt32("node-id"),
		Monitor:        c.GetBool("monitor"),
		Device: device.Config{
			Kind:     c.GetString("device.kind"),
			Snapshot: c.GetString("device.snapshot"),
			Serial: device.SerialConfig{
				Name:        c.GetString("device.serial.name"),
				Baud:        c.GetInt("device.serial.baud"),
				ReadTimeout: c.GetDuration("device.serial.read-timeout"),
			},
		},
		Log: logging.Config{
			Level:  c.GetString("log.level"),
			Format: c.GetString("log.format"),
			File: logging.FileConfig{
				Filename:   c.GetString("log.file.filename"),
				MaxSizeMB:  c.GetInt("log.file.max-size"),
				MaxBackups: c.GetInt("log.file.max-backups"),
				MaxAgeDays: c.GetInt("log.file.max-age"),
				Compress:   c.GetBool("log.file.compress"),
			},
		},
	}
}
