package main

import (
	"flag"

	"github.com/aaronwong1989/sigmatcp/comm/logging"
	"github.com/aaronwong1989/sigmatcp/comm/yml_config"
)

func main() {
	var confDir string
	var port int
	flag.StringVar(&confDir, "conf", "", "--conf ./conf")
	flag.IntVar(&port, "port", 0, "--port 8086, overrides the config file")
	flag.Parse()

	var conf yml_config.YmlConfig
	if confDir != "" {
		conf = yml_config.CreateYamlFactory("sigmatcp", confDir)
	} else {
		conf = yml_config.CreateYamlFactory("sigmatcp")
	}
	cfg := LoadConfig(conf)
	if port > 0 {
		cfg.Port = port
	}
	logging.Init(cfg.Log)
	defer func() { _ = log.Sync() }()

	// 热更新只作用于日志级别，其余配置需重启
	conf.OnChange(func(c yml_config.YmlConfig) {
		level := c.GetString("log.level")
		log.SetLevel(logging.ParseLevel(level))
		log.Infof("[%-9s] log level changed to %s", "Config", level)
	})
	conf.ConfigFileChangeListen()

	StartServer(cfg)
}
