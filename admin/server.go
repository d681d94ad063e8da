// Package admin 基于gnet的管理端口, 每行一个文本命令, 每个命令返回一行json.
package admin

import (
	"bytes"
	"context"
	"strings"
	"time"

	"github.com/fixkme/ticktimer/mlog"
	"github.com/google/uuid"
	"github.com/panjf2000/gnet/v2"
)

const maxLineSize = 4096

type Options struct {
	Addr      string // 例如 127.0.0.1:7000 或 tcp://127.0.0.1:7000
	Multicore bool
}

type Server struct {
	gnet.BuiltinEventEngine
	gnet.Engine
	handler *Handler
	opt     Options
	booted  chan struct{}
	exited  chan struct{}
}

func NewServer(sched Scheduler, opt Options) *Server {
	if !strings.Contains(opt.Addr, "://") {
		opt.Addr = "tcp://" + opt.Addr
	}
	return &Server{
		handler: NewHandler(sched),
		opt:     opt,
		booted:  make(chan struct{}),
		exited:  make(chan struct{}),
	}
}

func (s *Server) Name() string {
	return "admin"
}

func (s *Server) OnInit() error {
	return nil
}

// Run 阻塞直到Destroy或监听失败
func (s *Server) Run() {
	defer close(s.exited)
	err := gnet.Run(s, s.opt.Addr,
		gnet.WithMulticore(s.opt.Multicore),
		gnet.WithLogger(mlog.Get()),
	)
	if err != nil {
		mlog.Errorf("admin server %s exit with error: %v", s.opt.Addr, err)
	}
}

func (s *Server) Destroy() {
	select {
	case <-s.booted:
	case <-s.exited:
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := s.Engine.Stop(ctx); err != nil {
		mlog.Warnf("admin server stop error: %v", err)
	}
	<-s.exited
}

func (s *Server) OnBoot(eng gnet.Engine) gnet.Action {
	s.Engine = eng
	close(s.booted)
	mlog.Infof("admin server listening on %s", s.opt.Addr)
	return gnet.None
}

func (s *Server) OnOpen(c gnet.Conn) ([]byte, gnet.Action) {
	session := uuid.NewString()
	c.SetContext(session)
	mlog.Infof("admin session %s open from %v", session, c.RemoteAddr())
	return nil, gnet.None
}

func (s *Server) OnClose(c gnet.Conn, err error) gnet.Action {
	mlog.Infof("admin session %v closed, err=%v", c.Context(), err)
	return gnet.None
}

func (s *Server) OnTraffic(c gnet.Conn) gnet.Action {
	n := c.InboundBuffered()
	if n <= 0 {
		return gnet.None
	}
	buf, err := c.Peek(n)
	if err != nil {
		return gnet.None
	}
	var out []byte
	action := gnet.None
	consumed := 0
	for action == gnet.None {
		i := bytes.IndexByte(buf[consumed:], '\n')
		if i < 0 {
			break
		}
		line := strings.TrimSpace(string(buf[consumed : consumed+i]))
		consumed += i + 1
		switch {
		case line == "":
		case strings.EqualFold(line, "QUIT"):
			action = gnet.Close
		default:
			mlog.Debugf("admin session %v: %s", c.Context(), line)
			out = append(out, s.handler.Handle(line)...)
		}
	}
	if consumed > 0 {
		c.Discard(consumed)
	}
	if action == gnet.None && n-consumed > maxLineSize {
		mlog.Warnf("admin session %v: line too long, closing", c.Context())
		action = gnet.Close
	}
	if len(out) > 0 {
		if _, err = c.Write(out); err != nil {
			mlog.Warnf("admin session %v write error: %v", c.Context(), err)
			return gnet.Close
		}
	}
	return action
}
