package redis

import "errors"

var (
	ErrFailedToParseRedisConnString = errors.New("redis: failed to parse connection url")
	ErrRedisNotReady                = errors.New("redis: server not ready")
	ErrEmptyConnectionURL           = errors.New("redis: empty connection url, set REDIS_URL")
	ErrHealthcheckFailed            = errors.New("redis: healthcheck failed")
)
