package admin

import (
	"strconv"
	"strings"

	"github.com/fixkme/ticktimer/errs"
	"github.com/fixkme/ticktimer/mlog"
	"github.com/fixkme/ticktimer/timer"
	uerrs "github.com/fixkme/ticktimer/util/errs"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

// Scheduler 管理端需要的调度器接口, agent.Agent实现了它
type Scheduler interface {
	Add(seconds float64, cb timer.Func, args ...any) (timer.Hash, error)
	Remove(id timer.Hash) error
	Seconds(id timer.Hash) (timer.Info, bool, error)
	Status(id timer.Hash) (bool, error)
	Count() (int, error)
	Force(id timer.Hash) error
	Pending() ([]timer.Info, error)
	Scale() (int32, error)
	SetScale(n int32) (int32, error)
	HashLen() (int, error)
	SetHashLen(n int) (int, error)
}

// Handler 处理一行文本命令, 返回一行json
type Handler struct {
	sched Scheduler
}

func NewHandler(sched Scheduler) *Handler {
	return &Handler{sched: sched}
}

type fields = map[string]any

func (h *Handler) Handle(line string) []byte {
	args := strings.Fields(line)
	if len(args) == 0 {
		return replyError(errs.InvalidArgument.Print("empty command"))
	}
	res, err := h.dispatch(strings.ToUpper(args[0]), args[1:])
	if err != nil {
		return replyError(err)
	}
	return reply(res)
}

func (h *Handler) dispatch(cmd string, args []string) (fields, error) {
	switch cmd {
	case "COUNT":
		n, err := h.sched.Count()
		return fields{"count": n}, err
	case "PENDING":
		return h.pending()
	case "STATUS", "SECONDS", "REMOVE", "FORCE":
		if len(args) != 1 {
			return nil, errs.InvalidArgument.Printf("usage: %s <hash>", cmd)
		}
		id, err := timer.ParseHash(args[0])
		if err != nil {
			return nil, err
		}
		return h.byHash(cmd, id)
	case "SCALE":
		return h.scale(args)
	case "HASHLEN":
		return h.hashLen(args)
	case "ADD":
		return h.add(args)
	}
	return nil, errs.InvalidArgument.Printf("unknown command %s", cmd)
}

func (h *Handler) byHash(cmd string, id timer.Hash) (fields, error) {
	res := fields{"id": id.String()}
	switch cmd {
	case "STATUS":
		done, err := h.sched.Status(id)
		res["done"] = done
		return res, err
	case "SECONDS":
		info, ok, err := h.sched.Seconds(id)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, errs.NotFound.Print(id.String())
		}
		res["seconds"] = info.Seconds
		res["deadline"] = info.Deadline.String()
		return res, nil
	case "REMOVE":
		return res, h.sched.Remove(id)
	default:
		return res, h.sched.Force(id)
	}
}

func (h *Handler) pending() (fields, error) {
	list, err := h.sched.Pending()
	if err != nil {
		return nil, err
	}
	timers := make([]any, 0, len(list))
	for _, info := range list {
		timers = append(timers, fields{
			"id":       info.ID.String(),
			"seconds":  info.Seconds,
			"deadline": info.Deadline.String(),
		})
	}
	return fields{"count": len(list), "timers": timers}, nil
}

func (h *Handler) scale(args []string) (fields, error) {
	var n int32
	var err error
	if len(args) == 0 {
		n, err = h.sched.Scale()
	} else {
		v, perr := strconv.ParseInt(args[0], 10, 32)
		if perr != nil {
			return nil, errs.InvalidArgument.Printf("scale %q", args[0])
		}
		n, err = h.sched.SetScale(int32(v))
	}
	return fields{"scale": n}, err
}

func (h *Handler) hashLen(args []string) (fields, error) {
	var n int
	var err error
	if len(args) == 0 {
		n, err = h.sched.HashLen()
	} else {
		v, perr := strconv.Atoi(args[0])
		if perr != nil {
			return nil, errs.InvalidArgument.Printf("hash length %q", args[0])
		}
		n, err = h.sched.SetHashLen(v)
	}
	return fields{"hash_len": n}, err
}

// add ADD <seconds> <message...>, 到期时输出notice日志
func (h *Handler) add(args []string) (fields, error) {
	if len(args) < 2 {
		return nil, errs.InvalidArgument.Print("usage: ADD <seconds> <message>")
	}
	seconds, err := strconv.ParseFloat(args[0], 64)
	if err != nil {
		return nil, errs.InvalidArgument.Printf("seconds %q", args[0])
	}
	msg := strings.Join(args[1:], " ")
	id, err := h.sched.Add(seconds, notice, msg)
	if err != nil {
		return nil, err
	}
	return fields{"id": id.String()}, nil
}

func notice(args ...any) error {
	mlog.Noticef("admin timer: %v", args[0])
	return nil
}

func reply(res fields) []byte {
	if res == nil {
		res = fields{}
	}
	res["ok"] = true
	return encode(res)
}

func replyError(err error) []byte {
	ce := uerrs.WrapError(err)
	return encode(fields{"ok": false, "code": ce.Code(), "error": ce.Error()})
}

func encode(res fields) []byte {
	st, err := structpb.NewStruct(res)
	if err == nil {
		var data []byte
		if data, err = protojson.Marshal(st); err == nil {
			return append(data, '\n')
		}
	}
	mlog.Errorf("admin encode reply error: %v", err)
	return []byte("{\"ok\":false}\n")
}
