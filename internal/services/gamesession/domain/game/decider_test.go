package game

import (
	"fmt"
	"testing"

	apperrors "github.com/louisbranch/gamesession/internal/platform/errors"
)

const testUser = "user-3"

// coordinator applies decisions the way the session program does, with
// deterministic message ids.
type coordinator struct {
	t     *testing.T
	store *Store
	next  int
}

func newCoordinator(t *testing.T) *coordinator {
	return &coordinator{t: t, store: NewStore("wordle")}
}

func (c *coordinator) id(prefix string) string {
	c.next++
	return fmt.Sprintf("%s-%d", prefix, c.next)
}

// run executes both halves of a command, answering the oracle with reply.
func (c *coordinator) run(action Action, reply func(OracleRequest) OracleReply) (Decision, error) {
	c.t.Helper()
	cmd := Command{User: testUser, MessageID: c.id("in"), Action: action}
	for {
		current, exists := c.store.Get(testUser)
		decision := Decide(current, exists, cmd)
		if decision.Rejected() {
			return decision, decision.Err()
		}
		next := decision.Session
		if decision.ArmTimeout {
			next.TimeoutToken = c.id("timeout")
		}
		if decision.Outbound != nil {
			next.PendingOutbound = c.id("out")
		}
		c.store.Put(next)
		if !decision.Wait {
			return decision, nil
		}
		parked, _ := c.store.Get(testUser)
		found, ok := c.store.FindByPendingOutbound(parked.PendingOutbound)
		if !ok {
			c.t.Fatalf("no session for outbound %q", parked.PendingOutbound)
		}
		correlation := Correlate(found, reply(decision.Outbound))
		c.store.Put(correlation.Session)
		if correlation.Abandon != "" {
			return decision, fmt.Errorf("abandoned %s", correlation.Abandon)
		}
		if correlation.Wake != cmd.MessageID {
			c.t.Fatalf("wake = %q, want %q", correlation.Wake, cmd.MessageID)
		}
	}
}

func (c *coordinator) start() Decision {
	c.t.Helper()
	decision, err := c.run(StartGame{}, oracleAnswering(0))
	if err != nil {
		c.t.Fatalf("start game: %v", err)
	}
	return decision
}

func (c *coordinator) check(word string, correct int) (Decision, error) {
	c.t.Helper()
	return c.run(CheckWord{Word: word}, oracleAnswering(correct))
}

func (c *coordinator) session() Session {
	c.t.Helper()
	session, ok := c.store.Get(testUser)
	if !ok {
		c.t.Fatal("expected session")
	}
	return session
}

func oracleAnswering(correct int) func(OracleRequest) OracleReply {
	return func(req OracleRequest) OracleReply {
		switch req := req.(type) {
		case OracleStartGame:
			return OracleGameStarted{User: req.User}
		case OracleCheckWord:
			positions := make([]uint8, 0, correct)
			for i := 0; i < correct; i++ {
				positions = append(positions, uint8(i))
			}
			return OracleWordChecked{User: req.User, CorrectPositions: positions, ContainedInWord: []uint8{}}
		}
		return nil
	}
}

func assertCode(t *testing.T, err error, want apperrors.Code) {
	t.Helper()
	if got := apperrors.CodeOf(err); got != want {
		t.Fatalf("error code = %s, want %s (err=%v)", got, want, err)
	}
}

func TestStartGameFirstHalfParks(t *testing.T) {
	decision := Decide(Session{}, false, Command{User: testUser, MessageID: "in-1", Action: StartGame{}})
	if decision.Rejected() {
		t.Fatalf("unexpected rejection: %v", decision.Err())
	}
	if !decision.Wait || decision.Reply != nil || decision.ArmTimeout {
		t.Fatalf("first half should only park: %+v", decision)
	}
	if decision.Outbound != (OracleStartGame{User: testUser}) {
		t.Fatalf("outbound = %#v", decision.Outbound)
	}
	if decision.Session.PendingInbound != "in-1" || decision.Session.AttemptsRemaining != MaxAttempts {
		t.Fatalf("session = %+v", decision.Session)
	}
}

func TestStartGameRepliesAndArmsTimeout(t *testing.T) {
	c := newCoordinator(t)
	decision := c.start()

	if decision.Reply != (GameStarted{}) {
		t.Fatalf("reply = %#v, want GameStarted", decision.Reply)
	}
	if !decision.ArmTimeout {
		t.Fatal("expected timeout to be armed")
	}
	session := c.session()
	if session.Status != StatusRunning || session.AttemptsRemaining != MaxAttempts {
		t.Fatalf("session = %+v", session)
	}
	if session.Parked() || session.PendingOutbound != "" || session.CachedReply != nil {
		t.Fatalf("correlation not cleared: %+v", session)
	}
	if session.TimeoutToken == "" {
		t.Fatal("expected timeout token")
	}
}

func TestStartWhileRunningIsRejectedWithoutMutation(t *testing.T) {
	c := newCoordinator(t)
	c.start()
	before := c.session()

	for i := 0; i < 3; i++ {
		_, err := c.run(StartGame{}, oracleAnswering(0))
		assertCode(t, err, apperrors.CodeGameAlreadyStarted)
	}
	if after := c.session(); after != before {
		t.Fatalf("session mutated: %+v -> %+v", before, after)
	}
}

func TestStartWhileStartParkedIsRejected(t *testing.T) {
	parked := Session{User: testUser, PendingInbound: "in-1", PendingOutbound: "out-1", AttemptsRemaining: MaxAttempts}
	decision := Decide(parked, true, Command{User: testUser, MessageID: "in-2", Action: StartGame{}})
	assertCode(t, decision.Err(), apperrors.CodeGameStartInProgress)
}

func TestIdleUnsetSessionCanStart(t *testing.T) {
	idle := Session{User: testUser, AttemptsRemaining: MaxAttempts}
	decision := Decide(idle, true, Command{User: testUser, MessageID: "in-9", Action: StartGame{}})
	if decision.Rejected() || !decision.Wait {
		t.Fatalf("decision = %+v", decision)
	}
}

func TestAttemptsDecreaseWithWrongGuesses(t *testing.T) {
	c := newCoordinator(t)
	c.start()

	for n := 1; n <= 5; n++ {
		decision, err := c.check("aaaaa", 1)
		if err != nil {
			t.Fatalf("guess %d: %v", n, err)
		}
		checked, ok := decision.Reply.(WordChecked)
		if !ok {
			t.Fatalf("guess %d reply = %#v, want WordChecked", n, decision.Reply)
		}
		if len(checked.CorrectPositions) != 1 {
			t.Fatalf("correct positions = %v", checked.CorrectPositions)
		}
		if got, want := c.session().AttemptsRemaining, MaxAttempts-uint8(n); got != want {
			t.Fatalf("attempts after %d guesses = %d, want %d", n, got, want)
		}
		if c.session().Status != StatusRunning {
			t.Fatalf("status after %d guesses = %s", n, c.session().Status)
		}
	}

	decision, err := c.check("aaaaa", 0)
	if err != nil {
		t.Fatalf("sixth guess: %v", err)
	}
	if decision.Reply != (GameOver{Status: StatusLose}) {
		t.Fatalf("sixth reply = %#v, want GameOver(Lose)", decision.Reply)
	}
	session := c.session()
	if session.Status != StatusLose || session.AttemptsRemaining != 0 {
		t.Fatalf("session = %+v", session)
	}
	if session.TimeoutToken != "" {
		t.Fatal("expected timeout token cleared on loss")
	}
}

func TestAllCorrectWinsRegardlessOfAttempts(t *testing.T) {
	for _, misses := range []int{0, 3, 5} {
		t.Run(fmt.Sprintf("after %d misses", misses), func(t *testing.T) {
			c := newCoordinator(t)
			c.start()
			for i := 0; i < misses; i++ {
				if _, err := c.check("aaaaa", 2); err != nil {
					t.Fatalf("miss %d: %v", i, err)
				}
			}
			decision, err := c.check("apple", WordLength)
			if err != nil {
				t.Fatalf("winning guess: %v", err)
			}
			if decision.Reply != (GameOver{Status: StatusWin}) {
				t.Fatalf("reply = %#v, want GameOver(Win)", decision.Reply)
			}
			session := c.session()
			if session.Status != StatusWin || session.TimeoutToken != "" {
				t.Fatalf("session = %+v", session)
			}
			if session.AttemptsRemaining != MaxAttempts-uint8(misses) {
				t.Fatalf("attempts = %d", session.AttemptsRemaining)
			}
		})
	}
}

func TestRestartAfterTerminalResets(t *testing.T) {
	c := newCoordinator(t)
	c.start()
	for i := 0; i < int(MaxAttempts); i++ {
		if _, err := c.check("aaaaa", 0); err != nil {
			t.Fatalf("guess %d: %v", i, err)
		}
	}
	if c.session().Status != StatusLose {
		t.Fatalf("status = %s, want lose", c.session().Status)
	}

	c.start()
	session := c.session()
	if session.Status != StatusRunning || session.AttemptsRemaining != MaxAttempts {
		t.Fatalf("session after restart = %+v", session)
	}
	if c.store.Len() != 1 {
		t.Fatalf("store len = %d, want 1", c.store.Len())
	}
}

func TestCheckWordValidation(t *testing.T) {
	running := Session{User: testUser, Status: StatusRunning, AttemptsRemaining: 4, TimeoutToken: "t-1"}
	cases := []struct {
		name    string
		current Session
		exists  bool
		word    string
		want    apperrors.Code
	}{
		{name: "no session", word: "apple", want: apperrors.CodeGameNotFound},
		{name: "unset", current: Session{User: testUser}, exists: true, word: "apple", want: apperrors.CodeGameNotStarted},
		{name: "win", current: Session{User: testUser, Status: StatusWin}, exists: true, word: "apple", want: apperrors.CodeGameOver},
		{name: "lose", current: Session{User: testUser, Status: StatusLose}, exists: true, word: "apple", want: apperrors.CodeGameOver},
		{name: "timeout", current: Session{User: testUser, Status: StatusTimeout}, exists: true, word: "apple", want: apperrors.CodeGameOver},
		{name: "short", current: running, exists: true, word: "appl", want: apperrors.CodeWordLengthInvalid},
		{name: "long", current: running, exists: true, word: "apples", want: apperrors.CodeWordLengthInvalid},
		{name: "multibyte", current: running, exists: true, word: "äpple", want: apperrors.CodeWordLengthInvalid},
		{name: "uppercase", current: running, exists: true, word: "AAAAA", want: apperrors.CodeWordNotLowercase},
		{name: "mixed case", current: running, exists: true, word: "apPle", want: apperrors.CodeWordNotLowercase},
		{name: "parked", current: Session{User: testUser, Status: StatusRunning, PendingInbound: "in-1", PendingOutbound: "out-1"}, exists: true, word: "apple", want: apperrors.CodeWordCheckInProgress},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			decision := Decide(tc.current, tc.exists, Command{User: testUser, MessageID: "in-2", Action: CheckWord{Word: tc.word}})
			assertCode(t, decision.Err(), tc.want)
			if decision.Outbound != nil || decision.Wait {
				t.Fatalf("rejected decision carries effects: %+v", decision)
			}
		})
	}
}

func TestUppercaseGuessLeavesStateUntouched(t *testing.T) {
	c := newCoordinator(t)
	c.start()
	before := c.session()

	_, err := c.check("AAAAA", 0)
	assertCode(t, err, apperrors.CodeWordNotLowercase)
	if after := c.session(); after != before {
		t.Fatalf("session mutated: %+v -> %+v", before, after)
	}
}

func TestResumeRejectsMismatchedWakeup(t *testing.T) {
	cases := []struct {
		name   string
		action Action
		status Status
		reply  OracleReply
	}{
		{name: "start with word checked", action: StartGame{}, status: StatusUnset, reply: OracleWordChecked{User: testUser}},
		{name: "start for other user", action: StartGame{}, status: StatusUnset, reply: OracleGameStarted{User: "other"}},
		{name: "check with game started", action: CheckWord{Word: "apple"}, status: StatusRunning, reply: OracleGameStarted{User: testUser}},
		{name: "check for other user", action: CheckWord{Word: "apple"}, status: StatusRunning, reply: OracleWordChecked{User: "other"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			parked := Session{
				User:              testUser,
				Status:            tc.status,
				PendingInbound:    "in-1",
				PendingOutbound:   "out-1",
				CachedReply:       tc.reply,
				AttemptsRemaining: MaxAttempts,
			}
			decision := Decide(parked, true, Command{User: testUser, MessageID: "in-1", Action: tc.action})
			assertCode(t, decision.Err(), apperrors.CodeInvalidWakeupEvent)
		})
	}
}

func TestDecideRequiresCallerAndKnownAction(t *testing.T) {
	assertCode(t, Decide(Session{}, false, Command{Action: StartGame{}}).Err(), apperrors.CodeCallerRequired)
	assertCode(t, Decide(Session{}, false, Command{User: testUser, Action: CheckGameStatus{}}).Err(), apperrors.CodeActionUnknown)
}

func TestExpire(t *testing.T) {
	running := Session{User: testUser, Status: StatusRunning, TimeoutToken: "t-1", AttemptsRemaining: 3}

	expired, ok := Expire(running, "t-1")
	if !ok {
		t.Fatal("expected matching token to expire the game")
	}
	if expired.Status != StatusTimeout || expired.TimeoutToken != "" || expired.AttemptsRemaining != 3 {
		t.Fatalf("expired = %+v", expired)
	}

	parked := running
	parked.PendingInbound = "in-1"
	parked.PendingOutbound = "out-1"
	parked.CachedReply = OracleWordChecked{User: testUser}
	expired, ok = Expire(parked, "t-1")
	if !ok || expired.Parked() || expired.PendingOutbound != "" || expired.CachedReply != nil {
		t.Fatalf("expired parked session = %+v, want settled", expired)
	}

	if _, ok := Expire(running, "t-2"); ok {
		t.Fatal("stale token must not expire")
	}
	if _, ok := Expire(Session{User: testUser, Status: StatusWin, TimeoutToken: "t-1"}, "t-1"); ok {
		t.Fatal("finished game must not expire")
	}
	if _, ok := Expire(Session{User: testUser, Status: StatusRunning}, ""); ok {
		t.Fatal("empty token must not match")
	}
}

func TestCorrelateUnavailableAbandons(t *testing.T) {
	parked := Session{User: testUser, Status: StatusRunning, PendingInbound: "in-1", PendingOutbound: "out-1", AttemptsRemaining: 4}
	correlation := Correlate(parked, OracleUnavailable{Reason: "down"})
	if correlation.Abandon != "in-1" || correlation.Wake != "" {
		t.Fatalf("correlation = %+v", correlation)
	}
	if correlation.Session.Parked() || correlation.Session.PendingOutbound != "" {
		t.Fatalf("pending ids not cleared: %+v", correlation.Session)
	}
	if correlation.Session.AttemptsRemaining != 4 || correlation.Session.Status != StatusRunning {
		t.Fatalf("session = %+v", correlation.Session)
	}
}

func TestIsLowercase(t *testing.T) {
	cases := map[string]bool{"apple": true, "APPLE": false, "über": true, "Über": false, "a1b2c": true}
	for word, want := range cases {
		if got := IsLowercase(word); got != want {
			t.Fatalf("IsLowercase(%q) = %v, want %v", word, got, want)
		}
	}
}
