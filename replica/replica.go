package replica

import (
	"fmt"
	"log"
	"sync"

	"github.com/goose-lang/std"
)

// Replica is the local state of one member of a VR replica group: its view,
// status, op-number, log, commit-number and client table. All methods are
// safe for concurrent use; mutators run under one exclusive lock so that
// admission order is op-number order.
type Replica struct {
	mu *sync.RWMutex

	configuration []string
	replicaNumber uint64

	viewNumber   uint64
	status       Status
	opNumber     uint64
	log          opLog
	commitNumber uint64
	clientTable  *ClientTable

	sm StateMachine
}

// MakeReplica creates replica number me of the group described by
// configuration, in view 0 and Normal status. A nil sm uses Placeholder().
func MakeReplica(configuration []string, me uint64, sm StateMachine) (*Replica, error) {
	if len(configuration) == 0 {
		return nil, ErrEmptyConfig
	}
	if me >= uint64(len(configuration)) {
		return nil, fmt.Errorf("%w: %d, configuration has %d replicas", ErrReplicaNotFound, me, len(configuration))
	}
	if sm == nil {
		sm = Placeholder()
	}
	conf := make([]string, len(configuration))
	copy(conf, configuration)

	return &Replica{
		mu:            new(sync.RWMutex),
		configuration: conf,
		replicaNumber: me,
		viewNumber:    0,
		status:        Normal,
		opNumber:      0,
		log:           opLog{entries: make([]LogEntry, 0)},
		commitNumber:  0,
		clientTable:   MakeClientTable(),
		sm:            sm,
	}, nil
}

// requires r.mu held
func (r *Replica) primaryIndex() uint64 {
	return r.viewNumber % uint64(len(r.configuration))
}

func (r *Replica) IsPrimary() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.primaryIndex() == r.replicaNumber
}

func (r *Replica) PrimaryAddress() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.configuration[r.primaryIndex()]
}

// ProcessRequest admits request requestNumber of clientID on the primary and
// returns its result. A retransmission of the client's last completed request
// returns the cached result without executing op again. On error nothing
// changes.
func (r *Replica) ProcessRequest(clientID string, requestNumber uint64, op Op) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.primaryIndex() != r.replicaNumber {
		return nil, &NotPrimaryError{View: r.viewNumber, Primary: r.configuration[r.primaryIndex()]}
	}
	if r.status != Normal {
		return nil, &NotNormalError{Status: r.status}
	}
	if clientID == "" {
		return nil, ErrEmptyClientID
	}

	if rec, ok := r.clientTable.Lookup(clientID); ok {
		if rec.LastRequestNumber == requestNumber && rec.Completed() {
			return rec.LastResult, nil
		}
		// A resend of a request whose result is still pending also lands
		// here, as a mismatch.
		if rec.LastRequestNumber >= requestNumber {
			return nil, &OpNumberMismatchError{Expected: rec.LastRequestNumber + 1, Actual: requestNumber}
		}
	}

	// TODO: once the PREPARE/PREPAREOK layer exists, append first and execute
	// only after a quorum acknowledges op-number r.opNumber.
	// The state machine may reuse its output buffer; the log and the client
	// table keep their own copy.
	result := cloneBytes(r.sm.Apply(op))
	if result == nil {
		result = make([]byte, 0)
	}

	r.opNumber = std.SumAssumeNoOverflow(r.opNumber, 1)
	r.log.append(LogEntry{
		ClientID:      clientID,
		RequestNumber: requestNumber,
		Operation:     cloneBytes(op),
		Result:        result,
	})
	r.clientTable.Record(clientID, requestNumber, result)

	return cloneBytes(result), nil
}

// CheckView validates the view number carried by a message envelope.
func (r *Replica) CheckView(view uint64) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if view != r.viewNumber {
		return &InvalidViewNumberError{Expected: r.viewNumber, Actual: view}
	}
	return nil
}

// EnterView moves the replica to a newer view. Entering the current view is
// a no-op; an older view is rejected.
func (r *Replica) EnterView(view uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if view < r.viewNumber {
		return &InvalidViewNumberError{Expected: r.viewNumber, Actual: view}
	}
	if view == r.viewNumber {
		return nil
	}
	r.viewNumber = view
	log.Printf("replica %d: entered view %d, primary is %s", r.replicaNumber, view, r.configuration[r.primaryIndex()])
	return nil
}

// SetStatus moves the replica along the status transition table.
func (r *Replica) SetStatus(target Status) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !CanTransition(r.status, target) {
		return &TransitionError{From: r.status, To: target}
	}
	log.Printf("replica %d: status %s -> %s", r.replicaNumber, r.status, target)
	r.status = target
	return nil
}

// AdvanceCommit raises the commit-number to op. Lower values are ignored.
func (r *Replica) AdvanceCommit(op uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if op > r.opNumber {
		return fmt.Errorf("%w: commit %d, op number %d", ErrCommitBeyondOp, op, r.opNumber)
	}
	if op > r.commitNumber {
		r.commitNumber = op
	}
	return nil
}

// Snapshot encodes the whole replica state for state transfer.
func (r *Replica) Snapshot() []byte {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return encodeState(&state{
		viewNumber:   r.viewNumber,
		status:       r.status,
		opNumber:     r.opNumber,
		commitNumber: r.commitNumber,
		log:          r.log.entries,
		clients:      r.clientTable.records,
	})
}

// InstallSnapshot replaces the replica state with one produced by Snapshot.
// The configuration, replica number and state machine are kept. The state
// machine is not replayed; bringing it up to date is the caller's job.
func (r *Replica) InstallSnapshot(snap []byte) error {
	st, err := decodeState(snap)
	if err != nil {
		return err
	}
	if uint64(len(st.log)) != st.opNumber {
		return fmt.Errorf("%w: %d log entries, op number %d", ErrMalformedState, len(st.log), st.opNumber)
	}
	if st.commitNumber > st.opNumber {
		return fmt.Errorf("%w: commit %d, op number %d", ErrCommitBeyondOp, st.commitNumber, st.opNumber)
	}
	if err := checkClientsCoverLog(st); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.viewNumber = st.viewNumber
	r.status = st.status
	r.opNumber = st.opNumber
	r.commitNumber = st.commitNumber
	r.log = opLog{entries: st.log}
	r.clientTable = &ClientTable{records: st.clients}
	log.Printf("replica %d: installed state at view %d, op %d, commit %d",
		r.replicaNumber, st.viewNumber, st.opNumber, st.commitNumber)
	return nil
}

// checkClientsCoverLog rejects a state whose client table would let a logged
// request be admitted again: per client, logged request numbers must strictly
// increase and never exceed the recorded last request number.
func checkClientsCoverLog(st *state) error {
	lastLogged := make(map[string]uint64)
	for i, ent := range st.log {
		if prev, ok := lastLogged[ent.ClientID]; ok && ent.RequestNumber <= prev {
			return fmt.Errorf("%w: op %d repeats request %d of client %q",
				ErrMalformedState, i+1, ent.RequestNumber, ent.ClientID)
		}
		lastLogged[ent.ClientID] = ent.RequestNumber
		rec, ok := st.clients[ent.ClientID]
		if !ok || rec.LastRequestNumber < ent.RequestNumber {
			return fmt.Errorf("%w: op %d has request %d of client %q beyond its client table entry",
				ErrMalformedState, i+1, ent.RequestNumber, ent.ClientID)
		}
	}
	return nil
}

func (r *Replica) ViewNumber() uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.viewNumber
}

func (r *Replica) Status() Status {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.status
}

func (r *Replica) OpNumber() uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.opNumber
}

func (r *Replica) CommitNumber() uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.commitNumber
}

// Log returns a copy of the whole log.
func (r *Replica) Log() []LogEntry {
	return r.LogFrom(1)
}

// LogFrom returns copies of the entries with op-number >= op.
func (r *Replica) LogFrom(op uint64) []LogEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.log.from(op)
}

// Entry returns the log entry with op-number op.
func (r *Replica) Entry(op uint64) (LogEntry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.log.get(op)
}

func (r *Replica) ClientEntry(clientID string) (ClientRecord, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.clientTable.Lookup(clientID)
}

func (r *Replica) Configuration() []string {
	conf := make([]string, len(r.configuration))
	copy(conf, r.configuration)
	return conf
}

func (r *Replica) ReplicaNumber() uint64 {
	return r.replicaNumber
}

// Summary is a consistent read of the replica's counters.
type Summary struct {
	ReplicaNumber  uint64
	ViewNumber     uint64
	Status         Status
	OpNumber       uint64
	CommitNumber   uint64
	IsPrimary      bool
	PrimaryAddress string
	Clients        int
}

func (r *Replica) Summary() Summary {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return Summary{
		ReplicaNumber:  r.replicaNumber,
		ViewNumber:     r.viewNumber,
		Status:         r.status,
		OpNumber:       r.opNumber,
		CommitNumber:   r.commitNumber,
		IsPrimary:      r.primaryIndex() == r.replicaNumber,
		PrimaryAddress: r.configuration[r.primaryIndex()],
		Clients:        r.clientTable.Len(),
	}
}
