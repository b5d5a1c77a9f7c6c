package command

// RegisterAllCommands returns the handler for every Command.
func RegisterAllCommands(deps HandlerDeps) map[Command]HandlerFunc {
	return map[Command]HandlerFunc{
		Help:     newHelpHandler(deps),
		Pause:    newPauseHandler(deps),
		Resume:   newResumeHandler(deps),
		Settings: newSettingsHandler(deps),
		Feedback: newFeedbackHandler(deps),
	}
}
