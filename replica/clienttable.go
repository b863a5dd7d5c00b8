package replica

import (
	"sort"
)

// ClientRecord is the last request seen from a client. LastResult is nil if
// that request has not completed yet.
type ClientRecord struct {
	LastRequestNumber uint64
	LastResult        []byte
}

func (rec ClientRecord) Completed() bool {
	return rec.LastResult != nil
}

// ClientTable deduplicates client requests. It is not safe for concurrent
// use; the owning Replica serializes access.
type ClientTable struct {
	records map[string]ClientRecord
}

func MakeClientTable() *ClientTable {
	return &ClientTable{records: make(map[string]ClientRecord)}
}

func (t *ClientTable) Lookup(clientID string) (ClientRecord, bool) {
	rec, ok := t.records[clientID]
	if !ok {
		return ClientRecord{}, false
	}
	return ClientRecord{LastRequestNumber: rec.LastRequestNumber, LastResult: cloneBytes(rec.LastResult)}, true
}

// Record overwrites the entry for clientID. Callers must never move
// LastRequestNumber backwards.
func (t *ClientTable) Record(clientID string, requestNumber uint64, result []byte) {
	t.records[clientID] = ClientRecord{LastRequestNumber: requestNumber, LastResult: result}
}

func (t *ClientTable) Len() int {
	return len(t.records)
}

// Clients returns the known client ids in sorted order.
func (t *ClientTable) Clients() []string {
	ids := make([]string, 0, len(t.records))
	for id := range t.records {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
