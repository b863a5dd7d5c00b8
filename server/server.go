// Package server exposes a replica over urpc.
package server

import (
	"errors"
	"log"
	"net"
	"time"

	"github.com/mit-pdos/vrcore/e"
	"github.com/mit-pdos/vrcore/replica"
	"github.com/mit-pdos/vrcore/safemarshal"
	"github.com/mit-pdos/vrcore/urpc"
)

const (
	RPC_REQUEST  = uint64(0)
	RPC_STATUS   = uint64(1)
	RPC_LOG      = uint64(2)
	RPC_SNAPSHOT = uint64(3)
)

type Server struct {
	r  *replica.Replica
	rs *urpc.Server
}

func MakeServer(r *replica.Replica) *Server {
	s := &Server{r: r}
	handlers := make(map[uint64]func([]byte, *[]byte))

	handlers[RPC_REQUEST] = func(args []byte, reply *[]byte) {
		*reply = EncodeRequestReply(s.Request(args))
	}

	handlers[RPC_STATUS] = func(args []byte, reply *[]byte) {
		summary := s.r.Summary()
		*reply = EncodeSummary(&summary)
	}

	handlers[RPC_LOG] = func(args []byte, reply *[]byte) {
		from, _, err := safemarshal.ReadInt(args)
		if err != nil {
			*reply = e.EncodeError(e.Malformed)
			return
		}
		*reply = EncodeLogReply(s.r.LogFrom(from))
	}

	handlers[RPC_SNAPSHOT] = func(args []byte, reply *[]byte) {
		*reply = EncodeSnapshotReply(s.r.Snapshot())
	}

	s.rs = urpc.MakeServer(handlers)
	return s
}

// Request decodes and admits one client request.
func (s *Server) Request(enc_args []byte) *RequestReply {
	start := time.Now()
	reply := s.request(enc_args)
	requestDuration.Observe(time.Since(start).Seconds())
	observe(reply.Err, s.r.Summary())
	return reply
}

func (s *Server) request(enc_args []byte) *RequestReply {
	args, err := DecodeRequestArgs(enc_args)
	if err != nil {
		log.Printf("server: malformed request: %v", err)
		return &RequestReply{Err: e.Malformed}
	}
	if args.HasView {
		if err := s.r.CheckView(args.View); err != nil {
			return errorReply(err)
		}
	}
	result, err := s.r.ProcessRequest(args.ClientID, args.RequestNumber, args.Op)
	if err != nil {
		return errorReply(err)
	}
	// With no backups the primary is a quorum by itself.
	if len(s.r.Configuration()) == 1 {
		if err := s.r.AdvanceCommit(s.r.OpNumber()); err != nil {
			log.Printf("server: %v", err)
		}
	}
	return &RequestReply{Err: e.None, Result: result}
}

func errorReply(err error) *RequestReply {
	reply := &RequestReply{Err: replica.ErrorCode(err)}

	var notPrimary *replica.NotPrimaryError
	var mismatch *replica.OpNumberMismatchError
	var badView *replica.InvalidViewNumberError
	var notNormal *replica.NotNormalError
	switch {
	case errors.As(err, &notPrimary):
		reply.View = notPrimary.View
		reply.Primary = notPrimary.Primary
	case errors.As(err, &mismatch):
		reply.Expected = mismatch.Expected
		reply.Actual = mismatch.Actual
	case errors.As(err, &badView):
		reply.Expected = badView.Expected
		reply.Actual = badView.Actual
	case errors.As(err, &notNormal):
		reply.Status = notNormal.Status
	default:
		log.Printf("server: request rejected: %v", err)
	}
	return reply
}

func (s *Server) Serve(me string) (net.Addr, error) {
	addr, err := s.rs.Serve(me)
	if err != nil {
		return nil, err
	}
	log.Printf("server: replica %d serving on %s", s.r.ReplicaNumber(), addr)
	return addr, nil
}

func (s *Server) Close() {
	s.rs.Close()
}
