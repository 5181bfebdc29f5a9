package zap

import (
	"github.com/unkn0wn-root/clusterstore"
	"go.uber.org/zap"
)

type ZapLogger struct{ L *zap.Logger }

func (z ZapLogger) Debug(msg string, f clusterstore.LogFields) { z.L.Debug(msg, zf(f)...) }
func (z ZapLogger) Info(msg string, f clusterstore.LogFields)  { z.L.Info(msg, zf(f)...) }
func (z ZapLogger) Warn(msg string, f clusterstore.LogFields)  { z.L.Warn(msg, zf(f)...) }
func (z ZapLogger) Error(msg string, f clusterstore.LogFields) { z.L.Error(msg, zf(f)...) }

func zf(f clusterstore.LogFields) []zap.Field {
	if len(f) == 0 {
		return nil
	}
	out := make([]zap.Field, 0, len(f))
	for k, v := range f {
		out = append(out, zap.Any(k, v))
	}
	return out
}
