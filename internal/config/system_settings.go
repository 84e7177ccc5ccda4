package config

import (
	"log/slog"
	"os"
	"strconv"
	"time"
)

const DATABASE_TYPE = "GFLOW_DATABASE_TYPE"
const DATABASE_URL = "GFLOW_DATABASE_URL"
const DATABASE_SQLLITE_FILE_NAME = "GFLOW_DATABASE_SQLLITE_FILE_NAME"
const REDIS_URL = "GFLOW_REDIS_URL"
const REDIS_PREFIX = "GFLOW_REDIS_PREFIX" //key prefix so several engines can share one redis database
const ENGINE_SERVER_WEB_PORT = "GFLOW_ENGINE_SERVER_WEB_PORT"
const ENGINE_MAX_ITERATIONS = "GFLOW_ENGINE_MAX_ITERATIONS" //loop guard applied when a run request gives none
const ENGINE_RUN_TIMEOUT = "GFLOW_ENGINE_RUN_TIMEOUT"       //wall clock limit of a single run, checked between steps
const ENGINE_EXECUTOR_SIZE = "GFLOW_ENGINE_EXECUTOR_SIZE"   //number of workers executing async runs
const ENGINE_QUEUE_SIZE = "GFLOW_ENGINE_QUEUE_SIZE"         //async runs waiting for a worker before new ones are rejected
const API_KEY_HASH = "GFLOW_API_KEY_HASH"
const LOG_LEVEL = "GFLOW_LOG_LEVEL"

const DATABASE_TYPE_MEMORY = "MEMORY"
const DATABASE_TYPE_POSTGRES = "POSTGRES"
const DATABASE_TYPE_MYSQL = "MYSQL"
const DATABASE_TYPE_SQLLITE = "SQLLITE"
const DATABASE_TYPE_REDIS = "REDIS"

var defaults = map[string]string{
	DATABASE_TYPE:              DATABASE_TYPE_MEMORY,
	DATABASE_SQLLITE_FILE_NAME: "./gflow.db",
	REDIS_URL:                  "redis://localhost:6379/0",
	REDIS_PREFIX:               "graphflow:",
	ENGINE_SERVER_WEB_PORT:     "8080",
	ENGINE_MAX_ITERATIONS:      "100",
	ENGINE_RUN_TIMEOUT:         "30s",
	ENGINE_EXECUTOR_SIZE:       "5",
	ENGINE_QUEUE_SIZE:          "10",
	LOG_LEVEL:                  "info",
}

func GetSystemSettingInteger(settingKey string) int {
	val := GetSystemSettingString(settingKey)
	if val != "" {
		intValue, err := strconv.Atoi(val)
		if err != nil {
			slog.Warn("Invalid integer setting, using default", "key", settingKey, "value", val)
			intValue, _ = strconv.Atoi(defaults[settingKey])
		}
		return intValue
	}
	return 0
}

func GetSystemSettingDuration(settingKey string) time.Duration {
	val := GetSystemSettingString(settingKey)
	if val == "" {
		return 0
	}
	dur, err := time.ParseDuration(val)
	if err != nil {
		slog.Warn("Invalid duration setting, using default", "key", settingKey, "value", val)
		dur, _ = time.ParseDuration(defaults[settingKey])
	}
	return dur
}

func GetSystemSettingString(settingKey string) string {
	val := os.Getenv(settingKey)
	if val != "" {
		return val
	}
	return defaults[settingKey]
}
