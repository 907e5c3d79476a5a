package logger

import (
	"fmt"

	"go.uber.org/zap"
)

var base *zap.Logger

var serviceName = "levtrade"

func Init(development bool) error {
	var err error
	if development {
		base, err = zap.NewDevelopment()
	} else {
		base, err = zap.NewProduction()
	}
	return err
}

func SetServiceName(name string) {
	serviceName = name
}

func Info(format string, args ...interface{}) {
	if base == nil {
		return
	}
	base.With(zap.String("service", serviceName)).Info(fmt.Sprintf(format, args...))
}

func Warn(format string, args ...interface{}) {
	if base == nil {
		return
	}
	base.With(zap.String("service", serviceName)).Warn(fmt.Sprintf(format, args...))
}

func Error(format string, args ...interface{}) {
	if base == nil {
		return
	}
	base.With(zap.String("service", serviceName)).Error(fmt.Sprintf(format, args...))
}

func Fatal(format string, args ...interface{}) {
	if base == nil {
		panic(fmt.Sprintf(format, args...))
	}
	base.With(zap.String("service", serviceName)).Fatal(fmt.Sprintf(format, args...))
}

func Sync() {
	if base != nil {
		_ = base.Sync()
	}
}
