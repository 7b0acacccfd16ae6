// SPDX-License-Identifier: MIT
package config

import (
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. AUDIOLINK_SAMPLE_RATE.
const EnvPrefix = "AUDIOLINK"

// override copies one viper key onto the config.
type override struct {
	key   string
	apply func(c *Config, v *viper.Viper, key string)
}

// Keys are the CLI flag names; cmd binds each flag and its environment
// variable under the same key.
var overrides = []override{
	{"debug", func(c *Config, v *viper.Viper, k string) { c.Debug = v.GetBool(k) }},
	{"log-level", func(c *Config, v *viper.Viper, k string) { c.LogLevel = v.GetString(k) }},

	{"link", func(c *Config, v *viper.Viper, k string) { c.Link.Kind = v.GetString(k) }},
	{"address", func(c *Config, v *viper.Viper, k string) { c.Link.Address = v.GetString(k) }},
	{"replay", func(c *Config, v *viper.Viper, k string) { c.Link.Path = v.GetString(k) }},
	{"replay-interval", func(c *Config, v *viper.Viper, k string) { c.Link.ReplayInterval = v.GetDuration(k) }},
	{"loop", func(c *Config, v *viper.Viper, k string) { c.Link.Loop = v.GetBool(k) }},
	{"sample-rate", func(c *Config, v *viper.Viper, k string) { c.Link.SampleRate = v.GetInt(k) }},
	{"sample-format", func(c *Config, v *viper.Viper, k string) { c.Link.SampleFormat = v.GetString(k) }},
	{"buffer-size", func(c *Config, v *viper.Viper, k string) { c.Link.BufferSize = v.GetInt(k) }},
	{"zero-offset", func(c *Config, v *viper.Viper, k string) { c.Link.ZeroOffset = v.GetInt(k) }},
	{"connect", func(c *Config, v *viper.Viper, k string) { c.Link.Connect = v.GetBool(k) }},

	{"playback", func(c *Config, v *viper.Viper, k string) { c.Playback.Backend = v.GetString(k) }},
	{"device", func(c *Config, v *viper.Viper, k string) { c.Playback.Device = v.GetInt(k) }},
	{"low-latency", func(c *Config, v *viper.Viper, k string) { c.Playback.LowLatency = v.GetBool(k) }},

	{"algorithm", func(c *Config, v *viper.Viper, k string) { c.Tuning.Algorithm = v.GetString(k) }},
	{"frame-size", func(c *Config, v *viper.Viper, k string) { c.Tuning.FrameSize = v.GetInt(k) }},
	{"mode", func(c *Config, v *viper.Viper, k string) { c.Tuning.Mode = v.GetString(k) }},
	{"window", func(c *Config, v *viper.Viper, k string) { c.Tuning.Window = v.GetString(k) }},
	{"min-hz", func(c *Config, v *viper.Viper, k string) { c.Tuning.MinHz = v.GetFloat64(k) }},
	{"max-hz", func(c *Config, v *viper.Viper, k string) { c.Tuning.MaxHz = v.GetFloat64(k) }},
	{"tune", func(c *Config, v *viper.Viper, k string) { c.Tuning.Start = v.GetBool(k) }},

	{"output-dir", func(c *Config, v *viper.Viper, k string) { c.Recording.OutputDir = v.GetString(k) }},
	{"record", func(c *Config, v *viper.Viper, k string) { c.Recording.Start = v.GetBool(k) }},

	{"listen", func(c *Config, v *viper.Viper, k string) {
		c.Server.Listen = v.GetString(k)
		c.Server.Enabled = c.Server.Listen != ""
	}},
	{"udp-target", func(c *Config, v *viper.Viper, k string) {
		c.UDP.Target = v.GetString(k)
		c.UDP.Enabled = c.UDP.Target != ""
	}},
	{"udp-interval", func(c *Config, v *viper.Viper, k string) { c.UDP.Interval = v.GetDuration(k) }},

	{"monitor", func(c *Config, v *viper.Viper, k string) { c.Monitor.Enabled = v.GetBool(k) }},
	{"monitor-refresh", func(c *Config, v *viper.Viper, k string) { c.Monitor.Refresh = v.GetDuration(k) }},
}

// ApplyOverrides copies every key that v has explicitly set (a changed flag
// or a present environment variable) onto c, then validates the result.
// Keys v merely defaults are ignored so file settings survive.
func (c *Config) ApplyOverrides(v *viper.Viper) error {
	for _, o := range overrides {
		if v.IsSet(o.key) {
			o.apply(c, v, o.key)
		}
	}
	return c.Validate()
}

// OverrideKeys lists the keys ApplyOverrides understands.
func OverrideKeys() []string {
	keys := make([]string, len(overrides))
	for i, o := range overrides {
		keys[i] = o.key
	}
	return keys
}
