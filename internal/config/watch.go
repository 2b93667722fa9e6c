package config

import (
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"tradewind/internal/logger"
)

// Watch 监听配置文件变更并回调最新配置。
// 只有日志级别这类运行期可调的项值得热更新，结构性配置仍需重启生效。
func Watch(path string, onChange func(*Config)) error {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return err
	}
	v.OnConfigChange(func(evt fsnotify.Event) {
		cfg, err := Load(path)
		if err != nil {
			logger.Errorf("config reload failed: %v", err)
			return
		}
		logger.Infof("config reloaded (%s)", evt.Name)
		onChange(cfg)
	})
	v.WatchConfig()
	return nil
}
