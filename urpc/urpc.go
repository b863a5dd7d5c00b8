package urpc

import (
	"errors"
	"log"
	"net"
	"sync"
	"time"

	"github.com/goose-lang/std"
	"github.com/mit-pdos/vrcore/e"
	"github.com/mit-pdos/vrcore/netffi"
	"github.com/mit-pdos/vrcore/safemarshal"
	"github.com/tchajed/marshal"
)

var (
	ErrTimeout    = errors.New("urpc: timeout")
	ErrDisconnect = errors.New("urpc: disconnected")
)

type Server struct {
	handlers map[uint64]func([]byte, *[]byte)

	mu        *sync.Mutex
	listeners []*netffi.Listener
}

func MakeServer(handlers map[uint64]func([]byte, *[]byte)) *Server {
	return &Server{handlers: handlers, mu: new(sync.Mutex)}
}

func (srv *Server) rpcHandle(conn *netffi.Connection, rpcid uint64, seqno uint64, data []byte) {
	replyData := new([]byte)

	f, ok := srv.handlers[rpcid]
	if ok {
		f(data, replyData)
	} else {
		log.Printf("urpc: no handler for rpc %d", rpcid)
		*replyData = e.EncodeError(e.Malformed)
	}

	data1 := make([]byte, 0, 8+len(*replyData))
	data2 := marshal.WriteInt(data1, seqno)
	data3 := marshal.WriteBytes(data2, *replyData)
	// Ignore errors; the client will time out and retry.
	conn.Send(data3)
}

func (srv *Server) readThread(conn *netffi.Connection) {
	for {
		data, err := conn.Receive()
		if err != nil {
			// This connection is *done*.
			break
		}
		rpcid, data, err := safemarshal.ReadInt(data)
		if err != nil {
			break
		}
		seqno, req, err := safemarshal.ReadInt(data)
		if err != nil {
			break
		}
		go srv.rpcHandle(conn, rpcid, seqno, req)
	}
}

// Serve listens on addr and handles connections in the background. It
// returns the bound address, which differs from addr when addr has port 0.
func (srv *Server) Serve(addr string) (net.Addr, error) {
	listener, err := netffi.Listen(addr)
	if err != nil {
		return nil, err
	}
	srv.mu.Lock()
	srv.listeners = append(srv.listeners, listener)
	srv.mu.Unlock()

	go func() {
		for {
			conn, err := listener.Accept()
			if err != nil {
				return
			}
			go srv.readThread(conn)
		}
	}()
	return listener.Addr(), nil
}

// Close stops accepting connections. Established connections are left to
// their clients.
func (srv *Server) Close() error {
	srv.mu.Lock()
	defer srv.mu.Unlock()
	var err error
	for _, l := range srv.listeners {
		if err2 := l.Close(); err2 != nil {
			err = err2
		}
	}
	srv.listeners = nil
	return err
}

type callback struct {
	done  chan struct{}
	reply []byte
}

type Client struct {
	mu      *sync.Mutex
	conn    *netffi.Connection // for requests
	seq     uint64             // next fresh sequence number
	dead    bool
	pending map[uint64]*callback
}

func (cl *Client) replyThread() {
	for {
		data, err := cl.conn.Receive()
		if err != nil {
			// The connection is unusable: abort all pending requests.
			cl.mu.Lock()
			cl.dead = true
			for seqno, cb := range cl.pending {
				delete(cl.pending, seqno)
				close(cb.done)
			}
			cl.mu.Unlock()
			return
		}
		seqno, reply, err := safemarshal.ReadInt(data)
		if err != nil {
			continue
		}

		cl.mu.Lock()
		cb, ok := cl.pending[seqno]
		if ok {
			delete(cl.pending, seqno)
			cb.reply = reply
			close(cb.done)
		}
		cl.mu.Unlock()
	}
}

func MakeClient(addr string) (*Client, error) {
	conn, err := netffi.Connect(addr)
	if err != nil {
		return nil, err
	}
	cl := &Client{
		mu:      new(sync.Mutex),
		conn:    conn,
		seq:     1,
		pending: make(map[uint64]*callback),
	}
	go cl.replyThread()
	return cl, nil
}

func (cl *Client) Close() error {
	return cl.conn.Close()
}

// Call sends args to handler rpcid and waits up to timeout for the reply.
func (cl *Client) Call(rpcid uint64, args []byte, reply *[]byte, timeout time.Duration) error {
	cb := &callback{done: make(chan struct{})}
	cl.mu.Lock()
	if cl.dead {
		cl.mu.Unlock()
		return ErrDisconnect
	}
	seqno := cl.seq
	cl.seq = std.SumAssumeNoOverflow(cl.seq, 1)
	cl.pending[seqno] = cb
	cl.mu.Unlock()

	reqData := make([]byte, 0, 8+8+len(args))
	reqData = marshal.WriteInt(reqData, rpcid)
	reqData = marshal.WriteInt(reqData, seqno)
	reqData = marshal.WriteBytes(reqData, args)

	if err := cl.conn.Send(reqData); err != nil {
		cl.mu.Lock()
		delete(cl.pending, seqno)
		cl.mu.Unlock()
		return ErrDisconnect
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-cb.done:
		cl.mu.Lock()
		defer cl.mu.Unlock()
		if cb.reply == nil {
			return ErrDisconnect
		}
		*reply = cb.reply
		return nil
	case <-timer.C:
		cl.mu.Lock()
		delete(cl.pending, seqno)
		cl.mu.Unlock()
		return ErrTimeout
	}
}
