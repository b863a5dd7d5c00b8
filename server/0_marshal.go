package server

import (
	"errors"

	"github.com/mit-pdos/vrcore/e"
	"github.com/mit-pdos/vrcore/replica"
	"github.com/mit-pdos/vrcore/safemarshal"
	"github.com/tchajed/marshal"
)

var ErrTrailing = errors.New("server: trailing bytes")

type RequestArgs struct {
	ClientID      string
	RequestNumber uint64
	// When HasView is set the replica checks View against its own view
	// before admitting the request.
	HasView bool
	View    uint64
	Op      []byte
}

func EncodeRequestArgs(args *RequestArgs) []byte {
	var enc = make([]byte, 0, 8+uint64(len(args.ClientID))+8+8+8+uint64(len(args.Op)))
	enc = safemarshal.WriteString(enc, args.ClientID)
	enc = marshal.WriteInt(enc, args.RequestNumber)
	if args.HasView {
		enc = marshal.WriteInt(enc, 1)
	} else {
		enc = marshal.WriteInt(enc, 0)
	}
	enc = marshal.WriteInt(enc, args.View)
	enc = marshal.WriteBytes(enc, args.Op)
	return enc
}

func DecodeRequestArgs(enc_args []byte) (*RequestArgs, error) {
	var enc = enc_args
	var err error
	args := new(RequestArgs)
	if args.ClientID, enc, err = safemarshal.ReadString(enc); err != nil {
		return nil, err
	}
	if args.RequestNumber, enc, err = safemarshal.ReadInt(enc); err != nil {
		return nil, err
	}
	var hasView uint64
	if hasView, enc, err = safemarshal.ReadInt(enc); err != nil {
		return nil, err
	}
	args.HasView = hasView != 0
	if args.View, enc, err = safemarshal.ReadInt(enc); err != nil {
		return nil, err
	}
	args.Op = make([]byte, len(enc))
	copy(args.Op, enc)
	return args, nil
}

// RequestReply carries the outcome of RPC_REQUEST. Which fields are
// meaningful depends on Err.
type RequestReply struct {
	Err e.Error

	// e.None
	Result []byte
	// e.NotPrimary
	View    uint64
	Primary string
	// e.OpNumberMismatch, e.InvalidViewNumber
	Expected uint64
	Actual   uint64
	// e.NotNormal
	Status replica.Status
}

func EncodeRequestReply(reply *RequestReply) []byte {
	var enc = make([]byte, 0, 8+8+uint64(len(reply.Result))+uint64(len(reply.Primary)))
	enc = marshal.WriteInt(enc, reply.Err)
	switch reply.Err {
	case e.None:
		enc = marshal.WriteBytes(enc, reply.Result)
	case e.NotPrimary:
		enc = marshal.WriteInt(enc, reply.View)
		enc = safemarshal.WriteString(enc, reply.Primary)
	case e.OpNumberMismatch, e.InvalidViewNumber:
		enc = marshal.WriteInt(enc, reply.Expected)
		enc = marshal.WriteInt(enc, reply.Actual)
	case e.NotNormal:
		enc = marshal.WriteInt(enc, uint64(reply.Status))
	}
	return enc
}

func DecodeRequestReply(enc_reply []byte) (*RequestReply, error) {
	var enc = enc_reply
	var err error
	reply := new(RequestReply)
	if reply.Err, enc, err = safemarshal.ReadInt(enc); err != nil {
		return nil, err
	}
	switch reply.Err {
	case e.None:
		reply.Result = make([]byte, len(enc))
		copy(reply.Result, enc)
		return reply, nil
	case e.NotPrimary:
		if reply.View, enc, err = safemarshal.ReadInt(enc); err != nil {
			return nil, err
		}
		if reply.Primary, enc, err = safemarshal.ReadString(enc); err != nil {
			return nil, err
		}
	case e.OpNumberMismatch, e.InvalidViewNumber:
		if reply.Expected, enc, err = safemarshal.ReadInt(enc); err != nil {
			return nil, err
		}
		if reply.Actual, enc, err = safemarshal.ReadInt(enc); err != nil {
			return nil, err
		}
	case e.NotNormal:
		var st uint64
		if st, enc, err = safemarshal.ReadInt(enc); err != nil {
			return nil, err
		}
		reply.Status = replica.Status(st)
	}
	if len(enc) != 0 {
		return nil, ErrTrailing
	}
	return reply, nil
}

func EncodeSummary(s *replica.Summary) []byte {
	var enc = make([]byte, 0, 8*8+uint64(len(s.PrimaryAddress)))
	enc = marshal.WriteInt(enc, s.ReplicaNumber)
	enc = marshal.WriteInt(enc, s.ViewNumber)
	enc = marshal.WriteInt(enc, uint64(s.Status))
	enc = marshal.WriteInt(enc, s.OpNumber)
	enc = marshal.WriteInt(enc, s.CommitNumber)
	if s.IsPrimary {
		enc = marshal.WriteInt(enc, 1)
	} else {
		enc = marshal.WriteInt(enc, 0)
	}
	enc = safemarshal.WriteString(enc, s.PrimaryAddress)
	enc = marshal.WriteInt(enc, uint64(s.Clients))
	return enc
}

func DecodeSummary(enc_summary []byte) (*replica.Summary, error) {
	var enc = enc_summary
	var err error
	s := new(replica.Summary)
	if s.ReplicaNumber, enc, err = safemarshal.ReadInt(enc); err != nil {
		return nil, err
	}
	if s.ViewNumber, enc, err = safemarshal.ReadInt(enc); err != nil {
		return nil, err
	}
	var st uint64
	if st, enc, err = safemarshal.ReadInt(enc); err != nil {
		return nil, err
	}
	s.Status = replica.Status(st)
	if s.OpNumber, enc, err = safemarshal.ReadInt(enc); err != nil {
		return nil, err
	}
	if s.CommitNumber, enc, err = safemarshal.ReadInt(enc); err != nil {
		return nil, err
	}
	var isPrimary uint64
	if isPrimary, enc, err = safemarshal.ReadInt(enc); err != nil {
		return nil, err
	}
	s.IsPrimary = isPrimary != 0
	if s.PrimaryAddress, enc, err = safemarshal.ReadString(enc); err != nil {
		return nil, err
	}
	var clients uint64
	if clients, enc, err = safemarshal.ReadInt(enc); err != nil {
		return nil, err
	}
	s.Clients = int(clients)
	if len(enc) != 0 {
		return nil, ErrTrailing
	}
	return s, nil
}

// RPC_LOG and RPC_SNAPSHOT replies are an error code followed by the payload.

func encodeErrAnd(err e.Error, payload []byte) []byte {
	var enc = make([]byte, 0, 8+uint64(len(payload)))
	enc = marshal.WriteInt(enc, err)
	enc = marshal.WriteBytes(enc, payload)
	return enc
}

func EncodeLogReply(ents []replica.LogEntry) []byte {
	return encodeErrAnd(e.None, replica.EncodeLogEntries(make([]byte, 0), ents))
}

func DecodeLogReply(enc []byte) ([]replica.LogEntry, e.Error, error) {
	code, enc, err := safemarshal.ReadInt(enc)
	if err != nil {
		return nil, e.Malformed, err
	}
	if code != e.None {
		return nil, code, nil
	}
	ents, rest, err := replica.DecodeLogEntries(enc)
	if err != nil {
		return nil, e.Malformed, err
	}
	if len(rest) != 0 {
		return nil, e.Malformed, ErrTrailing
	}
	return ents, e.None, nil
}

func EncodeSnapshotReply(snap []byte) []byte {
	return encodeErrAnd(e.None, snap)
}

func DecodeSnapshotReply(enc []byte) ([]byte, e.Error, error) {
	code, enc, err := safemarshal.ReadInt(enc)
	if err != nil {
		return nil, e.Malformed, err
	}
	snap := make([]byte, len(enc))
	copy(snap, enc)
	return snap, code, nil
}
