package config

import (
	"fmt"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// ConfigWatcher 配置文件监听器
// 运行期只有日志级别可以热更新,其余字段变化只记录警告,需重启生效
type ConfigWatcher struct {
	viper  *viper.Viper
	logger logrus.FieldLogger

	mu        sync.RWMutex
	current   *Config
	callbacks []func(*Config)
	stopped   bool
}

// NewConfigWatcher 创建配置监听器
func NewConfigWatcher(cfg *Config, configPath string, logger logrus.FieldLogger) *ConfigWatcher {
	v := viper.New()
	setDefaults(v)
	v.SetConfigFile(configPath)
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	return &ConfigWatcher{
		viper:   v,
		logger:  logger.WithField("config_file", configPath),
		current: cfg,
	}
}

// OnConfigChange 注册配置变更回调
func (w *ConfigWatcher) OnConfigChange(callback func(*Config)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.callbacks = append(w.callbacks, callback)
}

// Start 读取配置文件并开始监听
func (w *ConfigWatcher) Start() error {
	if err := w.viper.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	w.viper.OnConfigChange(func(e fsnotify.Event) {
		if e.Op&(fsnotify.Write|fsnotify.Create) == 0 {
			return
		}
		w.reload()
	})
	w.viper.WatchConfig()
	return nil
}

// reload 解析新配置,非法配置保留旧值
func (w *ConfigWatcher) reload() {
	var next Config
	if err := w.viper.Unmarshal(&next); err != nil {
		w.logger.WithError(err).Error("config reload failed, keeping previous config")
		return
	}
	if err := next.Validate(); err != nil {
		w.logger.WithError(err).Error("reloaded config is invalid, keeping previous config")
		return
	}

	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return
	}
	previous := w.current
	w.current = &next
	callbacks := make([]func(*Config), len(w.callbacks))
	copy(callbacks, w.callbacks)
	w.mu.Unlock()

	if fields := RestartRequired(previous, &next); len(fields) > 0 {
		w.logger.WithField("fields", fields).Warn("config changes require a restart")
	}

	// 回调在锁外执行
	for _, callback := range callbacks {
		callback(&next)
	}
}

// RestartRequired 列出变化了但无法热更新的配置段
func RestartRequired(previous, next *Config) []string {
	if previous == nil || next == nil {
		return nil
	}
	var changed []string
	if previous.Server != next.Server {
		changed = append(changed, "server")
	}
	if previous.Database != next.Database {
		changed = append(changed, "database")
	}
	if previous.Auth != next.Auth {
		changed = append(changed, "auth")
	}
	if previous.Workflow != next.Workflow {
		changed = append(changed, "workflow")
	}
	if previous.RateLimit != next.RateLimit {
		changed = append(changed, "rate_limit")
	}
	return changed
}

// LogLevelUpdater 返回只更新日志级别的回调
func LogLevelUpdater(logger *logrus.Logger) func(*Config) {
	return func(cfg *Config) {
		level, err := logrus.ParseLevel(cfg.Log.Level)
		if err != nil || level == logger.GetLevel() {
			return
		}
		logger.SetLevel(level)
		logger.WithField("level", level.String()).Info("log level reloaded")
	}
}

// Stop 停止处理后续变更
func (w *ConfigWatcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.stopped = true
}

// GetConfig 获取当前配置
func (w *ConfigWatcher) GetConfig() *Config {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.current
}
