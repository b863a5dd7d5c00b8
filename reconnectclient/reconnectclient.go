package reconnectclient

import (
	"errors"
	"sync"
	"time"

	"github.com/mit-pdos/vrcore/urpc"
	"github.com/tchajed/goose/machine"
)

// redialDelay throttles dialing after a failed connection attempt.
const redialDelay = uint64(10_000_000) // 10ms

type ReconnectingClient struct {
	mu     *sync.Mutex
	valid  bool
	urpcCl *urpc.Client
	addr   string
}

func MakeReconnectingClient(addr string) *ReconnectingClient {
	r := new(ReconnectingClient)
	r.mu = new(sync.Mutex)
	r.valid = false
	r.addr = addr
	return r
}

func (cl *ReconnectingClient) Addr() string {
	return cl.addr
}

func (cl *ReconnectingClient) getClient() (*urpc.Client, error) {
	cl.mu.Lock()
	if cl.valid {
		ret := cl.urpcCl
		cl.mu.Unlock()
		return ret, nil
	}
	cl.mu.Unlock()

	newRpcCl, err := urpc.MakeClient(cl.addr)
	if err != nil {
		machine.Sleep(redialDelay)
		return nil, urpc.ErrDisconnect
	}

	cl.mu.Lock()
	if cl.valid {
		// someone else reconnected first
		ret := cl.urpcCl
		cl.mu.Unlock()
		newRpcCl.Close()
		return ret, nil
	}
	cl.urpcCl = newRpcCl
	cl.valid = true
	cl.mu.Unlock()

	return newRpcCl, nil
}

func (cl *ReconnectingClient) Call(rpcid uint64, args []byte, reply *[]byte, timeout time.Duration) error {
	urpcCl, err := cl.getClient()
	if err != nil {
		return err
	}
	err = urpcCl.Call(rpcid, args, reply, timeout)
	if errors.Is(err, urpc.ErrDisconnect) {
		cl.mu.Lock()
		if cl.urpcCl == urpcCl {
			cl.valid = false
		}
		cl.mu.Unlock()
	}
	return err
}

func (cl *ReconnectingClient) Close() {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	if cl.valid {
		cl.urpcCl.Close()
		cl.valid = false
	}
}
