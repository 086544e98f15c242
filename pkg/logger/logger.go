package logger

import (
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var base atomic.Pointer[zap.Logger]

// Init 로거 초기화. production 환경이면 JSON 출력.
func Init(env, level string) error {
	var zapConfig zap.Config

	if env == "production" {
		zapConfig = zap.NewProductionConfig()
	} else {
		zapConfig = zap.NewDevelopmentConfig()
	}
	zapConfig.Level = zap.NewAtomicLevelAt(parseLevel(level))

	l, err := zapConfig.Build()
	if err != nil {
		return err
	}

	base.Store(l)
	return nil
}

func parseLevel(level string) zapcore.Level {
	switch level {
	case "debug":
		return zapcore.DebugLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// L 구조화 로거. Init 전에는 Nop.
func L() *zap.Logger {
	if l := base.Load(); l != nil {
		return l
	}
	return zap.NewNop()
}

// Named 컴포넌트 이름이 붙은 로거
func Named(name string) *zap.Logger {
	return L().Named(name)
}

// Sync 로거 플러시
func Sync() {
	if l := base.Load(); l != nil {
		_ = l.Sync()
	}
}

// Debug 디버그 로그
func Debug(msg string, keysAndValues ...interface{}) {
	L().Sugar().Debugw(msg, keysAndValues...)
}

// Info 정보 로그
func Info(msg string, keysAndValues ...interface{}) {
	L().Sugar().Infow(msg, keysAndValues...)
}

// Warn 경고 로그
func Warn(msg string, keysAndValues ...interface{}) {
	L().Sugar().Warnw(msg, keysAndValues...)
}

// Error 에러 로그
func Error(msg string, keysAndValues ...interface{}) {
	L().Sugar().Errorw(msg, keysAndValues...)
}

// Fatal 치명적 에러 로그 (프로그램 종료)
func Fatal(msg string, keysAndValues ...interface{}) {
	L().Sugar().Fatalw(msg, keysAndValues...)
}
