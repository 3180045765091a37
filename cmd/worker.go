package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/praxis-labs/veracity/internal/config"
	"github.com/praxis-labs/veracity/internal/jobs"
)

func dialTemporal(cfg *config.Config) (client.Client, error) {
	c, err := client.Dial(client.Options{
		HostPort:  cfg.Temporal.HostPort,
		Namespace: cfg.Temporal.Namespace,
		Logger:    newTemporalLogger(),
	})
	if err != nil {
		return nil, eris.Wrapf(err, "dial temporal at %s", cfg.Temporal.HostPort)
	}
	return c, nil
}

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Run a verification worker against the Temporal task queue",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		eng, err := buildEngine(ctx, cfg)
		if err != nil {
			return err
		}
		defer eng.Close()

		c, err := dialTemporal(cfg)
		if err != nil {
			return err
		}
		defer c.Close()

		w := jobs.NewWorker(c, eng.orch)
		zap.L().Info("worker starting",
			zap.String("task_queue", jobs.TaskQueue),
			zap.String("host_port", cfg.Temporal.HostPort))
		if err := w.Run(worker.InterruptCh()); err != nil {
			return eris.Wrap(err, "run worker")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(workerCmd)
}

// temporalLogger adapts the SDK's leveled logger interface onto zap.
type temporalLogger struct {
	base *zap.SugaredLogger
}

func newTemporalLogger() *temporalLogger {
	return &temporalLogger{base: zap.L().WithOptions(zap.AddCallerSkip(1)).Sugar()}
}

func (l *temporalLogger) Debug(msg string, kv ...any) { l.log(zapcore.DebugLevel, msg, kv) }
func (l *temporalLogger) Info(msg string, kv ...any)  { l.log(zapcore.InfoLevel, msg, kv) }
func (l *temporalLogger) Warn(msg string, kv ...any)  { l.log(zapcore.WarnLevel, msg, kv) }
func (l *temporalLogger) Error(msg string, kv ...any) { l.log(zapcore.ErrorLevel, msg, kv) }

func (l *temporalLogger) log(level zapcore.Level, msg string, kv []any) {
	switch level {
	case zapcore.DebugLevel:
		l.base.Debugw(msg, kv...)
	case zapcore.InfoLevel:
		l.base.Infow(msg, kv...)
	case zapcore.WarnLevel:
		l.base.Warnw(msg, kv...)
	default:
		l.base.Errorw(msg, kv...)
	}
}
