// Package config loads OCuLaR's tuning knobs from the environment, with an
// optional .env file for local overrides — the same layering godotenv itself
// documents: real environment variables always win over .env values.
package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"

	"github.com/sarchlab/ocular/device"
	"github.com/sarchlab/ocular/router"
)

// envPrefix namespaces every OCuLaR environment variable so it can't collide
// with an unrelated tool's config sharing the same process environment.
const envPrefix = "OCULAR_"

// Load reads a .env file at path, if present, then builds a router.Config
// from environment variables layered over router.DefaultConfig. A missing
// .env file is not an error — it just means every knob falls back to its
// default or whatever the real environment already set.
func Load(path string) (router.Config, error) {
	if _, err := os.Stat(path); err == nil {
		if err := godotenv.Load(path); err != nil {
			return router.Config{}, err
		}
	}

	cfg := router.DefaultConfig()

	cfg.MaxPasses = envInt("MAX_PASSES", cfg.MaxPasses)
	cfg.InitialCongCost = envFloat("INITIAL_CONG_COST", cfg.InitialCongCost)
	cfg.CongCostGrowth = envFloat("CONG_COST_GROWTH", cfg.CongCostGrowth)
	cfg.HistoryFactor = envFloat("HISTORY_FACTOR", cfg.HistoryFactor)
	cfg.NearFarThresh = int32(envInt("NEAR_FAR_THRESH", int(cfg.NearFarThresh)))
	cfg.GroupNodes = envInt("GROUP_NODES", cfg.GroupNodes)
	cfg.Slack = envInt("SLACK", cfg.Slack)
	cfg.IterationCap = envInt("ITERATION_CAP", cfg.IterationCap)

	cfg.Device = loadDeviceConfig(cfg.Device)

	return cfg, nil
}

func loadDeviceConfig(d device.Config) device.Config {
	d.NumWorkgroups = envInt("NUM_WORKGROUPS", d.NumWorkgroups)
	d.WorkgroupSize = envInt("WORKGROUP_SIZE", d.WorkgroupSize)
	d.NearQueueLen = envInt("NEAR_QUEUE_LEN", d.NearQueueLen)
	d.FarQueueLen = envInt("FAR_QUEUE_LEN", d.FarQueueLen)
	d.DirtyQueueLen = envInt("DIRTY_QUEUE_LEN", d.DirtyQueueLen)
	d.MaxNetsInFlight = envInt("MAX_NETS_IN_FLIGHT", d.MaxNetsInFlight)
	return d
}

func envInt(key string, fallback int) int {
	v, ok := os.LookupEnv(envPrefix + key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func envFloat(key string, fallback float64) float64 {
	v, ok := os.LookupEnv(envPrefix + key)
	if !ok {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}
