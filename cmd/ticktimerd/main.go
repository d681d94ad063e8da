package main

import (
	"context"
	"log"
	"os"
	"sync"

	"github.com/fixkme/ticktimer/admin"
	"github.com/fixkme/ticktimer/agent"
	"github.com/fixkme/ticktimer/app"
	"github.com/fixkme/ticktimer/clock"
	"github.com/fixkme/ticktimer/config"
	"github.com/fixkme/ticktimer/mlog"
	"github.com/fixkme/ticktimer/timer"
	"github.com/spf13/pflag"
)

func main() {
	var configFile string
	flagSet := pflag.NewFlagSet("ticktimerd", pflag.ExitOnError)
	flagSet.StringVarP(&configFile, "config", "c", "", "json/jsonc config file, TICKTIMER_* env overrides it")
	flagSet.Parse(os.Args[1:])

	conf, err := config.Load(configFile, config.FromEnv)
	if err != nil {
		log.Fatalf("load config error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	wg := &sync.WaitGroup{}
	if len(conf.LogPath) > 0 {
		if err = mlog.UseDefaultLogger(ctx, wg, conf.LogPath, conf.LogName, mlog.Level(conf.LogLevel), conf.LogStdOut); err != nil {
			log.Fatalf("init logger error: %v", err)
		}
	} else {
		mlog.UseStdLogger(mlog.Level(conf.LogLevel))
	}
	if conf.IsDebug {
		mlog.Infof("config: %s", conf.JsonFormat())
	}

	tm := timer.New(
		timer.WithClock(clock.System{Offset: conf.TimeOffset()}),
		timer.WithScale(conf.Scale),
		timer.WithHashLen(conf.HashLen),
	)
	ag := agent.New(tm, agent.WithInterval(conf.TickInterval()), agent.WithTaskSize(conf.TaskSize))

	// 先销毁admin再销毁agent
	mods := []app.Module{ag}
	if len(conf.AdminAddr) > 0 {
		mods = append(mods, admin.NewServer(ag, admin.Options{Addr: conf.AdminAddr, Multicore: true}))
	}
	if err = app.DefaultApp().Run(mods...); err != nil {
		mlog.Errorf("app run error: %v", err)
	}

	cancel()
	wg.Wait()
}
