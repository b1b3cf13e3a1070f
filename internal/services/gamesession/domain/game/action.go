// Package game holds the per-user word game lifecycle as pure transitions.
//
// Nothing here sends messages or touches a runtime. Decide turns a command
// against the current session into a Decision the coordinator applies.
package game

// Action is an inbound coordinator action.
type Action interface {
	isAction()
}

// StartGame begins or restarts the caller's game.
type StartGame struct{}

// CheckWord submits a guess for the caller's running game.
type CheckWord struct {
	Word string `json:"word"`
}

// CheckGameStatus is the self-addressed timeout probe.
type CheckGameStatus struct{}

func (StartGame) isAction()       {}
func (CheckWord) isAction()       {}
func (CheckGameStatus) isAction() {}

// Event is an outbound coordinator event addressed to a user.
type Event interface {
	isEvent()
}

// GameStarted confirms the oracle accepted a new game.
type GameStarted struct{}

// GameTimeout notifies a user that the game expired without a guess.
type GameTimeout struct{}

// WordChecked reports the positions of a non-winning guess.
type WordChecked struct {
	CorrectPositions []uint8 `json:"correct_positions"`
	ContainedInWord  []uint8 `json:"contained_in_word"`
}

// GameOver reports a final outcome.
type GameOver struct {
	Status Status `json:"status"`
}

func (GameStarted) isEvent() {}
func (GameTimeout) isEvent() {}
func (WordChecked) isEvent() {}
func (GameOver) isEvent()    {}

// OracleRequest is a request sent to the word oracle.
type OracleRequest interface {
	isOracleRequest()
}

// OracleStartGame asks the oracle to pick a word for user.
type OracleStartGame struct {
	User string `json:"user"`
}

// OracleCheckWord asks the oracle to compare a guess against user's word.
type OracleCheckWord struct {
	User string `json:"user"`
	Word string `json:"word"`
}

func (OracleStartGame) isOracleRequest() {}
func (OracleCheckWord) isOracleRequest() {}

// OracleReply is an answer from the word oracle.
type OracleReply interface {
	isOracleReply()
}

// OracleGameStarted answers OracleStartGame.
type OracleGameStarted struct {
	User string `json:"user"`
}

// OracleWordChecked answers OracleCheckWord.
type OracleWordChecked struct {
	User             string  `json:"user"`
	CorrectPositions []uint8 `json:"correct_positions"`
	ContainedInWord  []uint8 `json:"contained_in_word"`
}

// OracleUnavailable is posted by the transport when the oracle could not be reached.
type OracleUnavailable struct {
	Reason string `json:"reason"`
}

func (OracleGameStarted) isOracleReply() {}
func (OracleWordChecked) isOracleReply() {}
func (OracleUnavailable) isOracleReply() {}

func cloneReply(reply OracleReply) OracleReply {
	if checked, ok := reply.(OracleWordChecked); ok {
		checked.CorrectPositions = cloneBytes(checked.CorrectPositions)
		checked.ContainedInWord = cloneBytes(checked.ContainedInWord)
		return checked
	}
	return reply
}

func cloneBytes(values []uint8) []uint8 {
	if values == nil {
		return nil
	}
	return append([]uint8(nil), values...)
}
