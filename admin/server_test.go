package admin

import (
	"bufio"
	"io"
	"net"
	"strings"
	"testing"
	"time"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

func freeAddr(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	addr := ln.Addr().String()
	ln.Close()
	return addr
}

func startServer(t *testing.T) (*Server, string) {
	t.Helper()
	_, a := newHandler(t)
	addr := freeAddr(t)
	s := NewServer(a, Options{Addr: addr})
	go s.Run()
	select {
	case <-s.booted:
	case <-s.exited:
		t.Fatal("admin server exited before boot")
	case <-time.After(3 * time.Second):
		t.Fatal("admin server boot timeout")
	}
	return s, addr
}

func dial(t *testing.T, addr string) net.Conn {
	t.Helper()
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatal(err)
	}
	conn.SetDeadline(time.Now().Add(3 * time.Second))
	t.Cleanup(func() { conn.Close() })
	return conn
}

func stopServer(t *testing.T, s *Server) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		s.Destroy()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("destroy did not return")
	}
}

func TestServerLines(t *testing.T) {
	s, addr := startServer(t)
	defer stopServer(t, s)

	conn := dial(t, addr)
	r := bufio.NewReader(conn)

	// 一个包里两条完整命令, 加半行
	if _, err := conn.Write([]byte("ADD 30 hi\nCOUNT\nSCA")); err != nil {
		t.Fatal(err)
	}
	var replies []string
	for i := 0; i < 2; i++ {
		line, err := r.ReadString('\n')
		if err != nil {
			t.Fatal(err)
		}
		replies = append(replies, line)
	}
	// 补全半行, QUIT之后的命令不再处理
	if _, err := conn.Write([]byte("LE\nQUIT\nCOUNT\n")); err != nil {
		t.Fatal(err)
	}
	for {
		line, err := r.ReadString('\n')
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("read after quit: %v", err)
		}
		replies = append(replies, line)
	}

	if len(replies) != 3 {
		t.Fatalf("replies = %q", replies)
	}
	var res []map[string]any
	for _, line := range replies {
		st := new(structpb.Struct)
		if err := protojson.Unmarshal([]byte(line), st); err != nil {
			t.Fatalf("bad reply %q: %v", line, err)
		}
		m := st.AsMap()
		if m["ok"] != true {
			t.Fatalf("reply not ok: %q", line)
		}
		res = append(res, m)
	}
	if id, _ := res[0]["id"].(string); len(id) == 0 {
		t.Fatalf("add reply: %v", res[0])
	}
	if res[1]["count"] != float64(1) || res[2]["scale"] != float64(6) {
		t.Fatalf("replies = %v", res)
	}
}

func TestServerClosesOnLongLine(t *testing.T) {
	s, addr := startServer(t)
	defer stopServer(t, s)

	conn := dial(t, addr)
	if _, err := conn.Write([]byte(strings.Repeat("a", maxLineSize+1))); err != nil {
		t.Fatal(err)
	}
	data, err := io.ReadAll(conn)
	if err != nil {
		t.Fatalf("expected close, got %v", err)
	}
	if len(data) != 0 {
		t.Fatalf("unexpected reply %q", data)
	}
}

func TestServerDestroyBeforeBoot(t *testing.T) {
	_, a := newHandler(t)
	s := NewServer(a, Options{Addr: "127.0.0.1:bad"})
	go s.Run()
	// 监听失败时Run直接返回, Destroy不能阻塞
	stopServer(t, s)
}
