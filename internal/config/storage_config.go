package config

import "time"

const (
	StorageMemory = "memory"
	StorageFile   = "file"
	StorageRedis  = "redis"
)

type Storage struct{}

var _ StorageConfig = Storage{}

// GetStorageBackend selects where client stores persist: memory, file or redis.
func (Storage) GetStorageBackend() string {
	return GetEnv("STORAGE_BACKEND", StorageFile)
}

func (Storage) GetRedisAddr() string {
	return GetEnv("REDIS_ADDR", "127.0.0.1:6379")
}

// GetStoragePassphrase keys the encrypted session store.
func (Storage) GetStoragePassphrase() string {
	return GetEnv("STORAGE_PASSPHRASE", "change-me")
}

func (Storage) GetRequestTimeout() time.Duration {
	return GetEnvDuration("REQUEST_TIMEOUT", 15*time.Second)
}
