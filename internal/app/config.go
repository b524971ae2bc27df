package app

import (
	"github.com/conceptlens/conceptlens-backend/internal/logger"
	"github.com/conceptlens/conceptlens-backend/internal/utils"
)

type Config struct {
	Port        string
	Environment string
	Version     string
	WithRedis   bool
	WithWorker  bool
}

func LoadConfig(log *logger.Logger) Config {
	return Config{
		Port:        utils.GetEnv("PORT", "8080", log),
		Environment: utils.GetEnv("APP_ENV", "development", log),
		Version:     utils.GetEnv("APP_VERSION", "dev", log),
		WithRedis:   utils.GetEnvAsBool("REDIS_ENABLED", false, log),
		WithWorker:  utils.GetEnvAsBool("COMPUTE_WORKER_ENABLED", true, log),
	}
}
