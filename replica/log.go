package replica

// LogEntry records one admitted client request. Result is nil while the
// request has not completed.
type LogEntry struct {
	ClientID      string
	RequestNumber uint64
	Operation     []byte
	Result        []byte
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	ret := make([]byte, len(b))
	copy(ret, b)
	return ret
}

func (ent LogEntry) clone() LogEntry {
	return LogEntry{
		ClientID:      ent.ClientID,
		RequestNumber: ent.RequestNumber,
		Operation:     cloneBytes(ent.Operation),
		Result:        cloneBytes(ent.Result),
	}
}

// opLog is append-only. The entry with op-number n lives at entries[n-1].
type opLog struct {
	entries []LogEntry
}

func positionInLog(op uint64) uint64 {
	return op - 1
}

func (l *opLog) append(ent LogEntry) uint64 {
	l.entries = append(l.entries, ent)
	return uint64(len(l.entries))
}

func (l *opLog) len() uint64 {
	return uint64(len(l.entries))
}

func (l *opLog) get(op uint64) (LogEntry, bool) {
	if op == 0 || op > l.len() {
		return LogEntry{}, false
	}
	return l.entries[positionInLog(op)].clone(), true
}

// from returns copies of the entries with op-number >= op.
func (l *opLog) from(op uint64) []LogEntry {
	if op == 0 {
		op = 1
	}
	if op > l.len() {
		return []LogEntry{}
	}
	tail := l.entries[positionInLog(op):]
	ret := make([]LogEntry, len(tail))
	for i, ent := range tail {
		ret[i] = ent.clone()
	}
	return ret
}
