package game

import (
	apperrors "github.com/louisbranch/gamesession/internal/platform/errors"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Command is one inbound action from a user, identified by its message id.
type Command struct {
	User      string
	MessageID string
	Action    Action
}

// Decision is the pure outcome of a command against a session.
//
// The coordinator sends Outbound and stores its id as PendingOutbound, sends
// Reply to the caller, schedules the timeout probe when ArmTimeout is set and
// stores its id as TimeoutToken, then parks the message if Wait is set.
type Decision struct {
	Session    Session
	Outbound   OracleRequest
	Reply      Event
	ArmTimeout bool
	Wait       bool
	Rejections []Rejection
}

// Rejection captures why a command was declined.
type Rejection struct {
	Code    apperrors.Code
	Message string
}

// Rejected reports whether the decision declines the command.
func (d Decision) Rejected() bool {
	return len(d.Rejections) > 0
}

// Err returns the first rejection as a domain error, or nil.
func (d Decision) Err() error {
	if len(d.Rejections) == 0 {
		return nil
	}
	return apperrors.New(d.Rejections[0].Code, d.Rejections[0].Message)
}

func reject(code apperrors.Code, message string) Decision {
	return Decision{Rejections: []Rejection{{Code: code, Message: message}}}
}

// Decide returns the decision for cmd given the caller's current session.
// The second half of a parked command is recognized by its message id
// matching PendingInbound while a reply is cached.
func Decide(current Session, exists bool, cmd Command) Decision {
	if cmd.User == "" {
		return reject(apperrors.CodeCallerRequired, "caller is required")
	}
	switch action := cmd.Action.(type) {
	case StartGame:
		return decideStart(current, exists, cmd)
	case CheckWord:
		return decideCheck(current, exists, cmd, action.Word)
	default:
		return reject(apperrors.CodeActionUnknown, "action is not supported")
	}
}

func resuming(current Session, cmd Command) bool {
	return current.Parked() && current.PendingInbound == cmd.MessageID && current.CachedReply != nil
}

func decideStart(current Session, exists bool, cmd Command) Decision {
	if exists && resuming(current, cmd) {
		started, ok := current.CachedReply.(OracleGameStarted)
		if !ok || started.User != cmd.User {
			return reject(apperrors.CodeInvalidWakeupEvent, "invalid wakeup event")
		}
		next := settled(current)
		next.Status = StatusRunning
		return Decision{Session: next, Reply: GameStarted{}, ArmTimeout: true}
	}
	if exists {
		switch {
		case current.Status == StatusRunning:
			return reject(apperrors.CodeGameAlreadyStarted, "game already started")
		case current.Status == StatusUnset && current.Parked():
			return reject(apperrors.CodeGameStartInProgress, "game start in progress")
		}
	}
	return Decision{
		Session: Session{
			User:              cmd.User,
			Status:            StatusUnset,
			PendingInbound:    cmd.MessageID,
			AttemptsRemaining: MaxAttempts,
		},
		Outbound: OracleStartGame{User: cmd.User},
		Wait:     true,
	}
}

func decideCheck(current Session, exists bool, cmd Command, word string) Decision {
	if !exists {
		return reject(apperrors.CodeGameNotFound, "game does not exist")
	}
	if current.Status.Terminal() {
		return reject(apperrors.CodeGameOver, "game over")
	}
	if current.Status != StatusRunning {
		return reject(apperrors.CodeGameNotStarted, "game not started")
	}
	if len(word) != WordLength {
		return reject(apperrors.CodeWordLengthInvalid, "word length must be 5")
	}
	if !IsLowercase(word) {
		return reject(apperrors.CodeWordNotLowercase, "word must be lowercase")
	}

	if resuming(current, cmd) {
		checked, ok := current.CachedReply.(OracleWordChecked)
		if !ok || checked.User != cmd.User {
			return reject(apperrors.CodeInvalidWakeupEvent, "invalid wakeup event")
		}
		next := settled(current)
		if len(checked.CorrectPositions) == WordLength {
			next.Status = StatusWin
			next.TimeoutToken = ""
			return Decision{Session: next, Reply: GameOver{Status: StatusWin}}
		}
		if next.AttemptsRemaining > 0 {
			next.AttemptsRemaining--
		}
		if next.AttemptsRemaining == 0 {
			next.Status = StatusLose
			next.TimeoutToken = ""
			return Decision{Session: next, Reply: GameOver{Status: StatusLose}}
		}
		return Decision{Session: next, Reply: WordChecked{
			CorrectPositions: cloneBytes(checked.CorrectPositions),
			ContainedInWord:  cloneBytes(checked.ContainedInWord),
		}}
	}
	if current.Parked() {
		return reject(apperrors.CodeWordCheckInProgress, "word check in progress")
	}

	next := current
	next.PendingInbound = cmd.MessageID
	return Decision{
		Session:  next,
		Outbound: OracleCheckWord{User: cmd.User, Word: word},
		Wait:     true,
	}
}

// settled clears the correlation fields once the second half consumes the reply.
func settled(current Session) Session {
	current.PendingInbound = ""
	current.PendingOutbound = ""
	current.CachedReply = nil
	return current
}

// IsLowercase reports whether word is unchanged by lowercasing.
func IsLowercase(word string) bool {
	return cases.Lower(language.Und).String(word) == word
}

// Expire applies a delivered timeout probe. It reports false, leaving the
// session untouched, when token is stale or the game is no longer running.
// An expired session is settled; the caller fails any parked command.
func Expire(current Session, token string) (Session, bool) {
	if token == "" || current.TimeoutToken != token || current.Status != StatusRunning {
		return current, false
	}
	next := settled(current)
	next.Status = StatusTimeout
	next.TimeoutToken = ""
	return next, true
}

// Correlation is the outcome of routing an oracle reply to a parked session.
type Correlation struct {
	Session Session
	// Wake is the parked inbound message to re-deliver.
	Wake string
	// Abandon is the parked inbound message to fail.
	Abandon string
}

// Correlate caches reply on a parked session. An OracleUnavailable reply
// clears the correlation and abandons the parked message instead.
func Correlate(current Session, reply OracleReply) Correlation {
	inbound := current.PendingInbound
	if _, unavailable := reply.(OracleUnavailable); unavailable {
		return Correlation{Session: settled(current), Abandon: inbound}
	}
	current.CachedReply = cloneReply(reply)
	return Correlation{Session: current, Wake: inbound}
}
