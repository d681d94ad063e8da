package app

import (
	"os"
	"os/signal"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"syscall"

	"github.com/fixkme/ticktimer/errs"
	"github.com/fixkme/ticktimer/mlog"
)

// 节点全局状态
const (
	AppStateNone = iota // 未开始或已停止
	AppStateInit        // 正在初始化中
	AppStateRun         // 正在运行中
	AppStateStop        // 正在停止中
)

var ErrStarted = errs.InvalidArgument.Print("app mods cannot start twice")

type Module interface {
	OnInit() error // 初始化
	Destroy()      // 销毁, 需要让Run返回
	Run()          // 启动, 阻塞
	Name() string  // 名字
}

var defaultApp = New()

// DefaultApp 默认单例
func DefaultApp() *App {
	return defaultApp
}

type App struct {
	mods  []Module
	state int32
	sig   chan os.Signal
	wg    sync.WaitGroup
}

func New() *App {
	return &App{sig: make(chan os.Signal, 1)}
}

func (app *App) setState(s int32) {
	atomic.StoreInt32(&app.state, s)
}

func (app *App) GetState() int32 {
	return atomic.LoadInt32(&app.state)
}

// Start 按顺序初始化所有模块, 然后各自在goroutine中运行.
// 某个模块初始化失败时, 已经初始化的模块按逆序销毁.
func (app *App) Start(mods ...Module) error {
	if app.GetState() != AppStateNone || len(app.mods) != 0 {
		return ErrStarted
	}
	if len(mods) == 0 {
		return nil
	}
	mlog.Info("app starting up")
	app.setState(AppStateInit)
	for i, mi := range mods {
		if err := mi.OnInit(); err != nil {
			mlog.Errorf("module %s init error %v", mi.Name(), err)
			for j := i - 1; j >= 0; j-- {
				destroy(mods[j])
			}
			app.setState(AppStateNone)
			return err
		}
	}
	app.mods = mods
	for _, mi := range app.mods {
		app.wg.Add(1)
		go run(mi, &app.wg)
	}
	app.setState(AppStateRun)
	mlog.Info("app started")
	return nil
}

// Shutdown 逆序销毁模块并等待所有Run返回
func (app *App) Shutdown() {
	if app.GetState() != AppStateRun {
		return
	}
	mlog.Info("app stop begin")
	app.setState(AppStateStop)
	// 先进后出
	for i := len(app.mods) - 1; i >= 0; i-- {
		mi := app.mods[i]
		mlog.Infof("app stop module %s", mi.Name())
		destroy(mi)
	}
	app.wg.Wait()
	app.mods = nil
	app.setState(AppStateNone)
	mlog.Info("app stopped")
}

func run(mi Module, wg *sync.WaitGroup) {
	defer wg.Done()
	defer func() {
		if r := recover(); r != nil {
			mlog.Errorf("%s module run panic: %v\n%s", mi.Name(), r, debug.Stack())
		}
	}()
	mi.Run()
}

func destroy(mi Module) {
	defer func() {
		if r := recover(); r != nil {
			mlog.Errorf("%s module destroy panic: %v\n%s", mi.Name(), r, debug.Stack())
		}
	}()
	mi.Destroy()
}

// Run 启动模块并阻塞到收到SIGINT/SIGTERM或调用Stop, SIGHUP被忽略.
// 没有模块时直接返回
func (app *App) Run(mods ...Module) error {
	if len(mods) == 0 {
		return nil
	}
	if err := app.Start(mods...); err != nil {
		return err
	}
	signal.Notify(app.sig, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(app.sig)
	for {
		sig := <-app.sig
		mlog.Infof("server closing down (signal: %v)", sig)
		if sig != syscall.SIGHUP {
			break
		}
	}
	app.Shutdown()
	return nil
}

// Stop 让Run返回
func (app *App) Stop() {
	select {
	case app.sig <- syscall.SIGTERM:
	default:
	}
}
