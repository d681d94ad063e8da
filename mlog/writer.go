package mlog

import (
	"fmt"
	"io"
	"log"
	"os"
)

// levelLogger 按级别过滤后把格式化好的行交给emit
type levelLogger struct {
	level Level
	emit  func(line string)
	exit  func()
}

func (l *levelLogger) IsLevelEnabled(level Level) bool {
	return l.level >= level
}

func (l *levelLogger) Log(level Level, args ...any) {
	if l.IsLevelEnabled(level) {
		l.emit(getLevelTag(level) + fmt.Sprint(args...))
	}
}

func (l *levelLogger) Logf(level Level, format string, args ...any) {
	if l.IsLevelEnabled(level) {
		if len(format) == 0 {
			l.emit(getLevelTag(level) + fmt.Sprint(args...))
		} else {
			l.emit(getLevelTag(level) + fmt.Sprintf(format, args...))
		}
	}
}

func (l *levelLogger) Trace(v ...any) { l.Log(TraceLevel, v...) }
func (l *levelLogger) Tracef(format string, v ...any) { l.Logf(TraceLevel, format, v...) }
func (l *levelLogger) Debug(v ...any) { l.Log(DebugLevel, v...) }
func (l *levelLogger) Debugf(format string, v ...any) { l.Logf(DebugLevel, format, v...) }
func (l *levelLogger) Info(v ...any) { l.Log(InfoLevel, v...) }
func (l *levelLogger) Infof(format string, v ...any) { l.Logf(InfoLevel, format, v...) }
func (l *levelLogger) Notice(v ...any) { l.Log(NoticeLevel, v...) }
func (l *levelLogger) Noticef(format string, v ...any) { l.Logf(NoticeLevel, format, v...) }
func (l *levelLogger) Warn(v ...any) { l.Log(WarnLevel, v...) }
func (l *levelLogger) Warnf(format string, v ...any) { l.Logf(WarnLevel, format, v...) }
func (l *levelLogger) Error(v ...any) { l.Log(ErrorLevel, v...) }
func (l *levelLogger) Errorf(format string, v ...any) { l.Logf(ErrorLevel, format, v...) }

func (l *levelLogger) Fatal(v ...any) {
	l.Log(FatalLevel, v...)
	l.exit()
}

func (l *levelLogger) Fatalf(format string, v ...any) {
	l.Logf(FatalLevel, format, v...)
	l.exit()
}

func getLevelTag(level Level) string {
	switch level {
	case FatalLevel:
		return "[fatal] "
	case ErrorLevel:
		return "[error] "
	case WarnLevel:
		return "[warn] "
	case NoticeLevel:
		return "[notice] "
	case InfoLevel:
		return "[info] "
	case DebugLevel:
		return "[debug] "
	case TraceLevel:
		return "[trace] "
	}
	return ""
}

func newStdoutLogger(level Level) *levelLogger {
	log.SetFlags(log.Ldate | log.Lmicroseconds)
	return &levelLogger{
		level: level,
		emit:  func(line string) { log.Println(line) },
		exit:  func() { os.Exit(1) },
	}
}

// NewWriterLogger 同步写入w, 不带时间前缀; Fatal不会退出进程
func NewWriterLogger(w io.Writer, level Level) Logger {
	ll := log.New(w, "", 0)
	return &levelLogger{
		level: level,
		emit:  func(line string) { ll.Println(line) },
		exit:  func() {},
	}
}
