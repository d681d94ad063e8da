package mlog

import (
	"context"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fixkme/ticktimer/util"
)

const rotateInterval = 30 * time.Second

var rotateSize = int64(100 * 1024 * 1024) // 100 MB

// fileLogger 异步写文件, 按大小滚动
type fileLogger struct {
	*levelLogger
	file   *os.File
	ll     *log.Logger
	buff   chan string
	stdOut bool
}

func newFileLogger(logpath, logName string, level Level, stdOut bool) (*fileLogger, error) {
	// 默认使用当前路径
	if len(logpath) == 0 {
		logpath = "."
	}
	if logName == "" {
		logName = "ticktimer"
	}
	logfile, err := util.OpenFile(filepath.Join(logpath, logName+".log"))
	if err != nil {
		return nil, err
	}
	if stdOut {
		log.SetFlags(log.Ldate | log.Lmicroseconds)
	}
	l := &fileLogger{
		file:   logfile,
		ll:     log.New(logfile, "", log.Ldate|log.Lmicroseconds),
		buff:   make(chan string, 0x10000),
		stdOut: stdOut,
	}
	l.levelLogger = &levelLogger{
		level: level,
		emit:  func(line string) { l.buff <- line },
		exit: func() {
			time.Sleep(time.Second)
			os.Exit(1)
		},
	}
	return l, nil
}

func (l *fileLogger) write(line string) {
	if l.stdOut {
		log.Println(line)
	}
	l.ll.Println(line)
}

func (l *fileLogger) Start(ctx context.Context, wg *sync.WaitGroup) {
	wg.Add(1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.Printf("mlog recover error %v\n", r)
			}
			l.file.Close()
			wg.Done()
		}()

		timer := time.NewTimer(rotateInterval)
		defer timer.Stop()
		for {
			select {
			case <-ctx.Done():
				// 退出前写完缓冲区
				for {
					select {
					case line := <-l.buff:
						l.write(line)
					default:
						return
					}
				}
			case line := <-l.buff:
				l.write(line)
			case <-timer.C:
				l.rotate()
				timer.Reset(rotateInterval)
			}
		}
	}()
}

func (l *fileLogger) rotate() {
	size, err := util.GetFileSize(l.file.Name())
	if err != nil {
		log.Println("mlog getFileSize error", err)
		return
	}
	if size <= rotateSize {
		return
	}
	file, err := util.RotateFile(l.file.Name(), time.Now())
	if err != nil {
		log.Println("mlog rotateFile error", err)
		return
	}
	l.ll.SetOutput(file)
	l.file.Close()
	l.file = file
}
