package scoring

// CommandType identifies a gameplay action.
type CommandType string

const (
	CommandStartSession        CommandType = "start_session"
	CommandStartGame           CommandType = "start_game"
	CommandMakeShot            CommandType = "make_shot"
	CommandMissShot            CommandType = "miss_shot"
	CommandEnterPointMode      CommandType = "enter_point_mode"
	CommandEnterMultiplierMode CommandType = "enter_multiplier_mode"
	CommandContinuePointMode   CommandType = "continue_point_mode"
	CommandUndo                CommandType = "undo"
	CommandFinalMake           CommandType = "final_make"
	CommandFinalMiss           CommandType = "final_miss"
	CommandEndGame             CommandType = "end_game"
	CommandEndSession          CommandType = "end_session"
)

// Command is a self-contained gameplay action value. User and voice input are
// both reduced to Commands and dispatched through a single synchronous
// handler, so there is never a second path mutating scoring state.
type Command struct {
	Type    CommandType `json:"type"`
	IsTipIn bool        `json:"is_tip_in,omitempty"`
}

// knownCommands is the full action set accepted from external input.
var knownCommands = map[CommandType]bool{
	CommandStartSession:        true,
	CommandStartGame:           true,
	CommandMakeShot:            true,
	CommandMissShot:            true,
	CommandEnterPointMode:      true,
	CommandEnterMultiplierMode: true,
	CommandContinuePointMode:   true,
	CommandUndo:                true,
	CommandFinalMake:           true,
	CommandFinalMiss:           true,
	CommandEndGame:             true,
	CommandEndSession:          true,
}

// IsKnownCommand reports whether t names a valid gameplay action.
func IsKnownCommand(t CommandType) bool {
	return knownCommands[t]
}
