package clerk

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/mit-pdos/vrcore/e"
	"github.com/mit-pdos/vrcore/reconnectclient"
	"github.com/mit-pdos/vrcore/replica"
	"github.com/mit-pdos/vrcore/server"
	"github.com/tchajed/goose/machine"
)

const (
	DefaultTimeout     = time.Second
	DefaultMaxAttempts = 50

	// backoff before retrying a replica that is not in normal status
	notNormalDelay = uint64(50_000_000) // 50ms
)

var ErrGaveUp = errors.New("clerk: no replica accepted the request")

// Clerk issues requests to a replica group on behalf of one client. A Clerk
// is not safe for concurrent use; run one Clerk per client thread.
type Clerk struct {
	clientID      string
	requestNumber uint64

	addrs   []string
	clients map[string]*reconnectclient.ReconnectingClient
	primary int

	Timeout     time.Duration
	MaxAttempts int
}

func Make(addresses []string) *Clerk {
	ck := new(Clerk)
	ck.clientID = uuid.NewString()
	ck.requestNumber = 0
	ck.addrs = make([]string, len(addresses))
	copy(ck.addrs, addresses)
	ck.clients = make(map[string]*reconnectclient.ReconnectingClient, len(addresses))
	for _, addr := range ck.addrs {
		ck.clients[addr] = reconnectclient.MakeReconnectingClient(addr)
	}
	ck.primary = 0
	ck.Timeout = DefaultTimeout
	ck.MaxAttempts = DefaultMaxAttempts
	return ck
}

func (ck *Clerk) ClientID() string {
	return ck.clientID
}

func (ck *Clerk) RequestNumber() uint64 {
	return ck.requestNumber
}

func (ck *Clerk) rotate() {
	ck.primary = (ck.primary + 1) % len(ck.addrs)
}

func (ck *Clerk) follow(primary string) {
	for i, addr := range ck.addrs {
		if addr == primary {
			ck.primary = i
			return
		}
	}
	ck.rotate()
}

// Apply sends op as the client's next request and returns its result. The
// same request number is resent until some replica answers, so op runs at
// most once.
func (ck *Clerk) Apply(op []byte) ([]byte, error) {
	if len(ck.addrs) == 0 {
		return nil, replica.ErrEmptyConfig
	}
	ck.requestNumber++
	args := server.EncodeRequestArgs(&server.RequestArgs{
		ClientID:      ck.clientID,
		RequestNumber: ck.requestNumber,
		Op:            op,
	})

	for attempt := 0; attempt < ck.MaxAttempts; attempt++ {
		addr := ck.addrs[ck.primary]
		raw := new([]byte)
		err := ck.clients[addr].Call(server.RPC_REQUEST, args, raw, ck.Timeout)
		if err != nil {
			log.Printf("clerk %s: %s: %v", ck.clientID, addr, err)
			ck.rotate()
			continue
		}
		reply, err := server.DecodeRequestReply(*raw)
		if err != nil {
			log.Printf("clerk %s: %s: bad reply: %v", ck.clientID, addr, err)
			ck.rotate()
			continue
		}

		switch reply.Err {
		case e.None:
			return reply.Result, nil
		case e.NotPrimary:
			ck.follow(reply.Primary)
		case e.NotNormal:
			machine.Sleep(notNormalDelay)
		case e.OpNumberMismatch:
			return nil, &replica.OpNumberMismatchError{Expected: reply.Expected, Actual: reply.Actual}
		case e.InvalidViewNumber:
			return nil, &replica.InvalidViewNumberError{Expected: reply.Expected, Actual: reply.Actual}
		default:
			return nil, fmt.Errorf("clerk: request %d rejected: %s", ck.requestNumber, e.String(reply.Err))
		}
	}
	return nil, ErrGaveUp
}

func (ck *Clerk) Close() {
	for _, cl := range ck.clients {
		cl.Close()
	}
}
