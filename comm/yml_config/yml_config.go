package yml_config

import (
	"errors"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"github.com/aaronwong1989/sigmatcp/comm/logging"
)

var log = logging.GetDefaultLogger()

const (
	EnvPrefix   = "SIGMATCP"
	EnvConfPath = "SIGMATCP_CONF_PATH"
)

type YmlConfig interface {
	ConfigFileChangeListen()
	OnChange(fn func(YmlConfig))
	ConfigFileUsed() string
	SetDefault(key string, value interface{})
	IsSet(key string) bool
	Get(key string) interface{}
	GetString(key string) string
	GetBool(key string) bool
	GetInt(key string) int
	GetInt32(key string) int32
	GetUint32(key string) uint32
	GetFloat64(key string) float64
	GetDuration(key string) time.Duration
	GetStringSlice(key string) []string
}

type ymlConfig struct {
	viper     *viper.Viper
	mu        sync.Mutex
	listeners []func(YmlConfig)
}

// CreateYamlFactory 读取 <fileName>.yaml，查找顺序：$SIGMATCP_CONF_PATH、dirs、.、./conf
// 配置文件缺失时仅使用默认值与环境变量（SIGMATCP_ 前缀，"." 与 "-" 替换为 "_"）
func CreateYamlFactory(fileName string, dirs ...string) YmlConfig {
	v := viper.New()
	v.SetConfigName(strings.TrimSuffix(fileName, ".yaml"))
	v.SetConfigType("yaml")
	if path := os.Getenv(EnvConfPath); path != "" {
		v.AddConfigPath(path)
	}
	for _, dir := range dirs {
		v.AddConfigPath(dir)
	}
	v.AddConfigPath(".")
	v.AddConfigPath("./conf")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			panic(err)
		}
		log.Warnf("[%-9s] %s.yaml not found, using defaults", "Conf", fileName)
	} else {
		log.Infof("[%-9s] path=%s", "Conf", v.ConfigFileUsed())
	}
	return &ymlConfig{viper: v}
}

// ConfigFileChangeListen 监听配置文件变化，变化后通知 OnChange 注册的回调
func (y *ymlConfig) ConfigFileChangeListen() {
	y.viper.OnConfigChange(func(e fsnotify.Event) {
		if e.Op&(fsnotify.Write|fsnotify.Create) == 0 {
			return
		}
		log.Infof("[%-9s] %s changed, reloading", "Conf", e.Name)
		y.mu.Lock()
		listeners := append([]func(YmlConfig){}, y.listeners...)
		y.mu.Unlock()
		for _, fn := range listeners {
			fn(y)
		}
	})
	y.viper.WatchConfig()
}

func (y *ymlConfig) OnChange(fn func(YmlConfig)) {
	y.mu.Lock()
	defer y.mu.Unlock()
	y.listeners = append(y.listeners, fn)
}

func (y *ymlConfig) ConfigFileUsed() string { return y.viper.ConfigFileUsed() }

func (y *ymlConfig) SetDefault(key string, value interface{}) { y.viper.SetDefault(key, value) }

func (y *ymlConfig) IsSet(key string) bool { return y.viper.IsSet(key) }

func (y *ymlConfig) Get(key string) interface{} { return y.viper.Get(key) }

func (y *ymlConfig) GetString(key string) string { return y.viper.GetString(key) }

func (y *ymlConfig) GetBool(key string) bool { return y.viper.GetBool(key) }

func (y *ymlConfig) GetInt(key string) int { return y.viper.GetInt(key) }

func (y *ymlConfig) GetInt32(key string) int32 { return y.viper.GetInt32(key) }

func (y *ymlConfig) GetUint32(key string) uint32 { return y.viper.GetUint32(key) }

func (y *ymlConfig) GetFloat64(key string) float64 { return y.viper.GetFloat64(key) }

func (y *ymlConfig) GetDuration(key string) time.Duration { return y.viper.GetDuration(key) }

func (y *ymlConfig) GetStringSlice(key string) []string { return y.viper.GetStringSlice(key) }
