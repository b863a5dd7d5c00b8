package replica

import (
	"fmt"

	"github.com/mit-pdos/vrcore/safemarshal"
	"github.com/tchajed/marshal"
)

// Log entry format:
// u64 ++ []u8: client id
// u64:         request number
// u64 ++ []u8: operation
// u64 [++ u64 ++ []u8]: result, present flag first
func EncodeLogEntry(enc []byte, ent LogEntry) []byte {
	enc = safemarshal.WriteString(enc, ent.ClientID)
	enc = marshal.WriteInt(enc, ent.RequestNumber)
	enc = safemarshal.WriteBytes(enc, ent.Operation)
	enc = safemarshal.WriteOptBytes(enc, ent.Result)
	return enc
}

func DecodeLogEntry(enc []byte) (LogEntry, []byte, error) {
	var ent LogEntry
	var err error
	if ent.ClientID, enc, err = safemarshal.ReadString(enc); err != nil {
		return LogEntry{}, enc, err
	}
	if ent.RequestNumber, enc, err = safemarshal.ReadInt(enc); err != nil {
		return LogEntry{}, enc, err
	}
	if ent.Operation, enc, err = safemarshal.ReadBytes(enc); err != nil {
		return LogEntry{}, enc, err
	}
	if ent.Result, enc, err = safemarshal.ReadOptBytes(enc); err != nil {
		return LogEntry{}, enc, err
	}
	return ent, enc, nil
}

func EncodeLogEntries(enc []byte, ents []LogEntry) []byte {
	enc = marshal.WriteInt(enc, uint64(len(ents)))
	for _, ent := range ents {
		enc = EncodeLogEntry(enc, ent)
	}
	return enc
}

func DecodeLogEntries(enc []byte) ([]LogEntry, []byte, error) {
	n, enc, err := safemarshal.ReadInt(enc)
	if err != nil {
		return nil, enc, err
	}
	// every entry takes at least 32 bytes; bound n before allocating
	if n > uint64(len(enc))/32 {
		return nil, enc, safemarshal.ErrShort
	}
	ents := make([]LogEntry, 0, n)
	for i := uint64(0); i < n; i++ {
		var ent LogEntry
		ent, enc, err = DecodeLogEntry(enc)
		if err != nil {
			return nil, enc, err
		}
		ents = append(ents, ent)
	}
	return ents, enc, nil
}

// State format:
// u64: view number
// u64: status
// u64: op number
// u64: commit number
// log entries (see EncodeLogEntries)
// u64: number of clients, then per client in id order:
//      u64 ++ []u8 client id, u64 last request number, optional last result
type state struct {
	viewNumber   uint64
	status       Status
	opNumber     uint64
	commitNumber uint64
	log          []LogEntry
	clients      map[string]ClientRecord
}

func encodeState(st *state) []byte {
	var enc = make([]byte, 0, 8*5)
	enc = marshal.WriteInt(enc, st.viewNumber)
	enc = marshal.WriteInt(enc, uint64(st.status))
	enc = marshal.WriteInt(enc, st.opNumber)
	enc = marshal.WriteInt(enc, st.commitNumber)
	enc = EncodeLogEntries(enc, st.log)

	t := &ClientTable{records: st.clients}
	ids := t.Clients()
	enc = marshal.WriteInt(enc, uint64(len(ids)))
	for _, id := range ids {
		rec := st.clients[id]
		enc = safemarshal.WriteString(enc, id)
		enc = marshal.WriteInt(enc, rec.LastRequestNumber)
		enc = safemarshal.WriteOptBytes(enc, rec.LastResult)
	}
	return enc
}

func decodeState(enc []byte) (*state, error) {
	st := new(state)
	var err error
	var status uint64
	for _, field := range []*uint64{&st.viewNumber, &status, &st.opNumber, &st.commitNumber} {
		if *field, enc, err = safemarshal.ReadInt(enc); err != nil {
			return nil, err
		}
	}
	st.status = Status(status)
	if !st.status.valid() {
		return nil, fmt.Errorf("%w: unknown status %d", ErrMalformedState, status)
	}
	if st.log, enc, err = DecodeLogEntries(enc); err != nil {
		return nil, err
	}

	var numClients uint64
	if numClients, enc, err = safemarshal.ReadInt(enc); err != nil {
		return nil, err
	}
	st.clients = make(map[string]ClientRecord)
	for i := uint64(0); i < numClients; i++ {
		var id string
		var rec ClientRecord
		if id, enc, err = safemarshal.ReadString(enc); err != nil {
			return nil, err
		}
		if rec.LastRequestNumber, enc, err = safemarshal.ReadInt(enc); err != nil {
			return nil, err
		}
		if rec.LastResult, enc, err = safemarshal.ReadOptBytes(enc); err != nil {
			return nil, err
		}
		st.clients[id] = rec
	}
	if len(enc) != 0 {
		return nil, fmt.Errorf("%w: %d trailing bytes", ErrMalformedState, len(enc))
	}
	return st, nil
}
