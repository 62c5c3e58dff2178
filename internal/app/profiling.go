package app

import (
	"fmt"
	"log/slog"

	"github.com/grafana/pyroscope-go"

	"github.com/alanyoungcy/orderbot/internal/config"
)

// startProfiler pushes CPU and allocation profiles to Pyroscope when
// enabled. The returned stop function is never nil.
func startProfiler(cfg *config.Config, logger *slog.Logger) (func(), error) {
	if !cfg.Profiling.Enabled {
		return func() {}, nil
	}
	profiler, err := pyroscope.Start(pyroscope.Config{
		ApplicationName: cfg.Profiling.ApplicationName,
		ServerAddress:   cfg.Profiling.ServerAddress,
		Tags:            map[string]string{"env": cfg.Environment},
		Logger:          pyroscopeLogger{logger.With(slog.String("component", "profiler"))},
		ProfileTypes: []pyroscope.ProfileType{
			pyroscope.ProfileCPU,
			pyroscope.ProfileAllocObjects,
			pyroscope.ProfileAllocSpace,
			pyroscope.ProfileInuseObjects,
			pyroscope.ProfileInuseSpace,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("app: start profiler: %w", err)
	}
	logger.Info("profiling enabled", slog.String("server", cfg.Profiling.ServerAddress))
	return func() { _ = profiler.Stop() }, nil
}

// pyroscopeLogger adapts slog to the profiler's printf-style logger.
type pyroscopeLogger struct{ l *slog.Logger }

func (p pyroscopeLogger) Infof(format string, args ...any)  { p.l.Debug(fmt.Sprintf(format, args...)) }
func (p pyroscopeLogger) Debugf(format string, args ...any) { p.l.Debug(fmt.Sprintf(format, args...)) }
func (p pyroscopeLogger) Errorf(format string, args ...any) { p.l.Error(fmt.Sprintf(format, args...)) }
