package providers

import (
	"fmt"
	"path/filepath"
	"pixeld/internal/structures"
	"strings"

	"github.com/spf13/viper"
)

func NewConfigProvider(flags *structures.CliFlags) (*structures.Config, error) {
	var conf structures.Config

	filename := filepath.Base(flags.ConfigPath)
	viper.AddConfigPath(filepath.Dir(flags.ConfigPath))
	viper.SetConfigName(strings.TrimSuffix(filename, filepath.Ext(filename)))
	viper.SetConfigType("yaml")

	viper.BindEnv("logger.level", "PIXELD_LOG_LEVEL")
	viper.BindEnv("tracking.beaconUrl", "PIXELD_BEACON_URL")
	viper.BindEnv("resolver.url", "PIXELD_RESOLVER_URL")
	viper.BindEnv("session.ttl", "PIXELD_SESSION_TTL")
	viper.BindEnv("persistence.saveInterval", "PIXELD_SAVE_INTERVAL")
	viper.BindEnv("cache.enabled", "PIXELD_CACHE_ENABLED")
	viper.BindEnv("cache.size", "PIXELD_CACHE_SIZE")

	err := viper.ReadInConfig()
	if err != nil {
		return nil, err
	}

	err = viper.Unmarshal(&conf)
	if err != nil {
		return nil, fmt.Errorf("unable to decode into config struct: %w", err)
	}

	cnfValidator := NewCnfValidator(&conf)
	err = cnfValidator.Validate()
	if err != nil {
		return nil, err
	}

	conf.AppName = "PixelIdentityDaemon"
	conf.Path = flags.ConfigPath
	conf.Debug = flags.DebugMode

	return &conf, nil
}
