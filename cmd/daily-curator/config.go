// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"github.com/spf13/viper"

	"github.com/pdiddy/daily-curator/internal/secrets"
	"github.com/pdiddy/daily-curator/pkg/types"
)

// setDefaults registers every configuration key with its default so that
// environment variables resolve even when no config file exists.
func setDefaults(v *viper.Viper) {
	d := types.DefaultConfig()

	v.SetDefault("store.path", d.Store.Path)

	v.SetDefault("ai.model", d.AI.Model)
	v.SetDefault("ai.api_key", "")
	v.SetDefault("ai.max_retries", d.AI.MaxRetries)
	v.SetDefault("ai.max_input_tokens", d.AI.MaxInputTokens)
	v.SetDefault("ai.timeout", d.AI.Timeout)

	v.SetDefault("embedding.model", d.Embedding.Model)
	v.SetDefault("embedding.api_key", "")
	v.SetDefault("embedding.timeout", d.Embedding.Timeout)

	v.SetDefault("rate.tpm_limit", d.Rate.TPMLimit)
	v.SetDefault("rate.max_concurrent", d.Rate.MaxConcurrent)

	v.SetDefault("dedup.threshold", d.Dedup.Threshold)
	v.SetDefault("dedup.window", d.Dedup.Window)
	v.SetDefault("dedup.reprocess_window", d.Dedup.ReprocessWindow)

	v.SetDefault("downvote.max_prototypes", d.Downvote.MaxPrototypes)
	v.SetDefault("downvote.threshold", d.Downvote.Threshold)
	v.SetDefault("downvote.max_penalty", d.Downvote.MaxPenalty)
	v.SetDefault("downvote.recent_scan", d.Downvote.RecentScan)

	v.SetDefault("curator.min_score", d.Curator.MinScore)
	v.SetDefault("curator.window", d.Curator.Window)
	v.SetDefault("curator.uncategorized_today", d.Curator.UncategorizedToday)
	v.SetDefault("curator.timezone", d.Curator.Timezone)

	v.SetDefault("batch.limit", d.Batch.Limit)
	v.SetDefault("batch.window", d.Batch.Window)

	v.SetDefault("retention.archive_after", d.Retention.ArchiveAfter)
	v.SetDefault("retention.keep_for", d.Retention.KeepFor)

	v.SetDefault("scheduler.spec", d.Scheduler.Spec)
	v.SetDefault("server.addr", d.Server.Addr)

	v.SetDefault("redis.addr", d.Redis.Addr)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", d.Redis.DB)
	v.SetDefault("redis.lock_ttl", d.Redis.LockTTL)

	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
}

// loadConfig reads the typed configuration from v. API keys and the Redis
// password fall back to the loaded secrets when the config leaves them empty.
func loadConfig(v *viper.Viper) types.Config {
	var c types.Config

	c.Store.Path = v.GetString("store.path")

	c.AI.Model = v.GetString("ai.model")
	c.AI.APIKey = secretDefault(secrets.AnthropicAPIKey, v.GetString("ai.api_key"))
	c.AI.MaxRetries = v.GetInt("ai.max_retries")
	c.AI.MaxInputTokens = v.GetInt("ai.max_input_tokens")
	c.AI.Timeout = v.GetDuration("ai.timeout")

	c.Embedding.Model = v.GetString("embedding.model")
	c.Embedding.APIKey = secretDefault(secrets.CohereAPIKey, v.GetString("embedding.api_key"))
	c.Embedding.Timeout = v.GetDuration("embedding.timeout")

	c.Rate.TPMLimit = v.GetInt("rate.tpm_limit")
	c.Rate.MaxConcurrent = v.GetInt("rate.max_concurrent")

	c.Dedup.Threshold = v.GetFloat64("dedup.threshold")
	c.Dedup.Window = v.GetDuration("dedup.window")
	c.Dedup.ReprocessWindow = v.GetDuration("dedup.reprocess_window")

	c.Downvote.MaxPrototypes = v.GetInt("downvote.max_prototypes")
	c.Downvote.Threshold = v.GetFloat64("downvote.threshold")
	c.Downvote.MaxPenalty = v.GetFloat64("downvote.max_penalty")
	c.Downvote.RecentScan = v.GetInt("downvote.recent_scan")

	c.Curator.MinScore = v.GetFloat64("curator.min_score")
	c.Curator.Window = v.GetDuration("curator.window")
	c.Curator.UncategorizedToday = v.GetInt("curator.uncategorized_today")
	c.Curator.Timezone = v.GetString("curator.timezone")

	c.Batch.Limit = v.GetInt("batch.limit")
	c.Batch.Window = v.GetDuration("batch.window")

	c.Retention.ArchiveAfter = v.GetDuration("retention.archive_after")
	c.Retention.KeepFor = v.GetDuration("retention.keep_for")

	c.Scheduler.Spec = v.GetString("scheduler.spec")
	c.Server.Addr = v.GetString("server.addr")

	c.Redis.Addr = v.GetString("redis.addr")
	c.Redis.Password = secretDefault(secrets.RedisPassword, v.GetString("redis.password"))
	c.Redis.DB = v.GetInt("redis.db")
	c.Redis.LockTTL = v.GetDuration("redis.lock_ttl")

	c.Log.Level = v.GetString("log.level")
	c.Log.Format = v.GetString("log.format")
	return c
}
