package game

import "fmt"

const (
	// WordLength is the byte length of every guess.
	WordLength = 5
	// MaxAttempts is the guess budget of a new game.
	MaxAttempts uint8 = 6
	// TimeoutBlocks is the inactivity window measured from game start.
	TimeoutBlocks uint64 = 200
)

// Status is the lifecycle state of a user's game.
type Status int

const (
	StatusUnset Status = iota
	StatusRunning
	StatusWin
	StatusLose
	StatusTimeout
)

var statusNames = map[Status]string{
	StatusUnset:   "unset",
	StatusRunning: "running",
	StatusWin:     "win",
	StatusLose:    "lose",
	StatusTimeout: "timeout",
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("status(%d)", int(s))
}

// Terminal reports whether the game has finished.
func (s Status) Terminal() bool {
	return s == StatusWin || s == StatusLose || s == StatusTimeout
}

// MarshalText encodes the status by name.
func (s Status) MarshalText() ([]byte, error) {
	name, ok := statusNames[s]
	if !ok {
		return nil, fmt.Errorf("unknown status %d", int(s))
	}
	return []byte(name), nil
}

// UnmarshalText decodes a status name.
func (s *Status) UnmarshalText(text []byte) error {
	for status, name := range statusNames {
		if name == string(text) {
			*s = status
			return nil
		}
	}
	return fmt.Errorf("unknown status %q", text)
}

// Session is one user's game record.
//
// PendingInbound and PendingOutbound are set together while a command is parked
// awaiting the oracle. CachedReply holds the oracle answer between the wake and
// the resumed second half.
type Session struct {
	User              string      `json:"user"`
	Status            Status      `json:"status"`
	PendingInbound    string      `json:"pending_inbound_id,omitempty"`
	PendingOutbound   string      `json:"pending_outbound_id,omitempty"`
	CachedReply       OracleReply `json:"cached_reply,omitempty"`
	TimeoutToken      string      `json:"timeout_token,omitempty"`
	AttemptsRemaining uint8       `json:"attempts_remaining"`
}

// Parked reports whether a command is waiting on the oracle.
func (s Session) Parked() bool {
	return s.PendingInbound != ""
}

func (s Session) clone() Session {
	s.CachedReply = cloneReply(s.CachedReply)
	return s
}

// Store is the coordinator state: the oracle address and one session per user.
// It is not safe for concurrent use; the hosting runtime serializes access.
type Store struct {
	oracleAddress string
	sessions      map[string]Session
	order         []string
}

// Snapshot is an immutable copy of a Store.
type Snapshot struct {
	OracleAddress string    `json:"oracle_address"`
	Sessions      []Session `json:"sessions"`
}

// NewStore returns an empty store bound to an oracle address.
func NewStore(oracleAddress string) *Store {
	return &Store{
		oracleAddress: oracleAddress,
		sessions:      make(map[string]Session),
	}
}

// OracleAddress returns the address fixed at construction.
func (s *Store) OracleAddress() string {
	return s.oracleAddress
}

// Get returns the session for user.
func (s *Store) Get(user string) (Session, bool) {
	session, ok := s.sessions[user]
	return session, ok
}

// Put inserts or overwrites the session for session.User. Sessions are never removed.
func (s *Store) Put(session Session) {
	if _, ok := s.sessions[session.User]; !ok {
		s.order = append(s.order, session.User)
	}
	s.sessions[session.User] = session
}

// FindByPendingOutbound returns the session awaiting the oracle request id.
func (s *Store) FindByPendingOutbound(requestID string) (Session, bool) {
	if requestID == "" {
		return Session{}, false
	}
	for _, user := range s.order {
		if session := s.sessions[user]; session.PendingOutbound == requestID {
			return session, true
		}
	}
	return Session{}, false
}

// FindByTimeoutToken returns the session armed with the timeout message id.
// Sessions without a token never match.
func (s *Store) FindByTimeoutToken(token string) (Session, bool) {
	if token == "" {
		return Session{}, false
	}
	for _, user := range s.order {
		if session := s.sessions[user]; session.TimeoutToken == token {
			return session, true
		}
	}
	return Session{}, false
}

// Len returns the number of known users.
func (s *Store) Len() int {
	return len(s.order)
}

// Snapshot copies the store in first-start order.
func (s *Store) Snapshot() Snapshot {
	snapshot := Snapshot{
		OracleAddress: s.oracleAddress,
		Sessions:      make([]Session, 0, len(s.order)),
	}
	for _, user := range s.order {
		snapshot.Sessions = append(snapshot.Sessions, s.sessions[user].clone())
	}
	return snapshot
}
