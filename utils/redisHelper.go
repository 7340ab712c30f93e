package utils

import (
	"os"
	"strconv"
	"time"

	"bitbucket.org/kiranetwork/recon_backend/config"
)

// Cache keys for the parameters service. Settlement rules and holiday sets
// are read on every ledger build, so they are cached with a short lifespan
// and invalidated on save.
const (
	RedisKeySettlementRules = "Parameters:SettlementRules"
	RedisKeyAddOnHolidays   = "Parameters:AddOnHolidays"
	RedisKeyPublicHolidays  = "Parameters:PublicHolidays"
	RedisKeyFeeConfigs      = "Parameters:FeeConfigs"
)

func GetCacheLifespan() time.Duration {
	lifespan, err := strconv.Atoi(os.Getenv("CACHE_LIFESPAN"))
	if err != nil {
		lifespan = 1
	}
	return time.Duration(lifespan) * time.Hour
}

// ClearParameterCache drops every cached parameter view. Called after any
// parameter save so the next read goes to the database.
func ClearParameterCache() error {
	return config.RemoveRedisKey(
		RedisKeySettlementRules,
		RedisKeyAddOnHolidays,
		RedisKeyPublicHolidays,
		RedisKeyFeeConfigs,
	)
}

// CacheObject stores obj under key with the standard lifespan.
func CacheObject(key string, obj interface{}) error {
	return config.SetRedisObject(key, obj, GetCacheLifespan())
}

// FetchCachedObject loads a cached object into dest; false when absent.
func FetchCachedObject(key string, dest interface{}) (bool, error) {
	return config.GetRedisObject(key, dest)
}
