package mlog

import (
	"context"
	"io"
	"sync"
	"sync/atomic"
)

type Logger interface {
	Trace(v ...any)
	Debug(v ...any)
	Info(v ...any)
	Notice(v ...any)
	Warn(v ...any)
	Error(v ...any)
	Fatal(v ...any)

	Tracef(format string, v ...any)
	Debugf(format string, v ...any)
	Infof(format string, v ...any)
	Noticef(format string, v ...any)
	Warnf(format string, v ...any)
	Errorf(format string, v ...any)
	Fatalf(format string, v ...any)
}

type Level uint32

const (
	FatalLevel Level = iota
	ErrorLevel
	WarnLevel
	NoticeLevel
	InfoLevel
	DebugLevel
	TraceLevel
)

type holder struct{ l Logger }

var current atomic.Pointer[holder]

func init() {
	SetLogger(nil)
}

// SetLogger 替换全局logger, nil表示丢弃所有日志
func SetLogger(l Logger) {
	if l == nil {
		l = nopLogger{}
	}
	current.Store(&holder{l: l})
}

// Get 返回当前的全局logger, 不会为nil
func Get() Logger {
	return current.Load().l
}

func UseDefaultLogger(ctx context.Context, wg *sync.WaitGroup, path string, logName string, level Level, stdOut bool) error {
	l, err := newFileLogger(path, logName, level, stdOut)
	if err != nil {
		return err
	}
	l.Start(ctx, wg)
	SetLogger(l)
	return nil
}

func UseStdLogger(level Level) {
	SetLogger(newStdoutLogger(level))
}

// UseWriterLogger 日志同步写入w, 测试中用来捕获输出
func UseWriterLogger(w io.Writer, level Level) Logger {
	l := NewWriterLogger(w, level)
	SetLogger(l)
	return l
}

func Trace(a ...any) { Get().Trace(a...) }
func Tracef(format string, a ...any) { Get().Tracef(format, a...) }
func Debug(a ...any) { Get().Debug(a...) }
func Debugf(format string, a ...any) { Get().Debugf(format, a...) }
func Info(a ...any) { Get().Info(a...) }
func Infof(format string, a ...any) { Get().Infof(format, a...) }
func Notice(a ...any) { Get().Notice(a...) }
func Noticef(format string, a ...any) { Get().Noticef(format, a...) }
func Warn(a ...any) { Get().Warn(a...) }
func Warnf(format string, a ...any) { Get().Warnf(format, a...) }
func Error(a ...any) { Get().Error(a...) }
func Errorf(format string, a ...any) { Get().Errorf(format, a...) }
func Fatal(a ...any) { Get().Fatal(a...) }
func Fatalf(format string, a ...any) { Get().Fatalf(format, a...) }

type nopLogger struct{}

func (nopLogger) Trace(...any) {}
func (nopLogger) Debug(...any) {}
func (nopLogger) Info(...any) {}
func (nopLogger) Notice(...any) {}
func (nopLogger) Warn(...any) {}
func (nopLogger) Error(...any) {}
func (nopLogger) Fatal(...any) {}
func (nopLogger) Tracef(string, ...any) {}
func (nopLogger) Debugf(string, ...any) {}
func (nopLogger) Infof(string, ...any) {}
func (nopLogger) Noticef(string, ...any) {}
func (nopLogger) Warnf(string, ...any) {}
func (nopLogger) Errorf(string, ...any) {}
func (nopLogger) Fatalf(string, ...any) {}
