// internal/logging/sampling.go
package logging

import (
	"go.uber.org/zap/zapcore"
)

// newSampledCore wraps core with a sampler per configured level.
// Levels without an entry, and Error and above, pass through unsampled.
func newSampledCore(core zapcore.Core, cfg SamplingConfig) zapcore.Core {
	if !cfg.Enabled || len(cfg.Levels) == 0 {
		return core
	}

	cores := []zapcore.Core{
		&levelRangeCore{Core: core, keep: func(l zapcore.Level) bool {
			if l >= zapcore.ErrorLevel {
				return true
			}
			_, sampled := cfg.Levels[l]
			return !sampled
		}},
	}

	for lvl, rate := range cfg.Levels {
		if lvl >= zapcore.ErrorLevel {
			continue
		}
		only := lvl
		filtered := &levelRangeCore{Core: core, keep: func(l zapcore.Level) bool { return l == only }}
		cores = append(cores, zapcore.NewSamplerWithOptions(filtered, cfg.Tick.Duration(), rate.Initial, rate.Thereafter))
	}

	return zapcore.NewTee(cores...)
}

// levelRangeCore forwards only entries whose level satisfies keep.
type levelRangeCore struct {
	zapcore.Core
	keep func(zapcore.Level) bool
}

func (c *levelRangeCore) Enabled(lvl zapcore.Level) bool {
	return c.keep(lvl) && c.Core.Enabled(lvl)
}

func (c *levelRangeCore) Check(e zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if !c.Enabled(e.Level) {
		return ce
	}
	return c.Core.Check(e, ce)
}

func (c *levelRangeCore) With(fields []zapcore.Field) zapcore.Core {
	return &levelRangeCore{
		Core: c.Core.With(fields),
		keep: c.keep,
	}
}
