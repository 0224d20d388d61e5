package handlers

import (
	tgbot "github.com/go-telegram/bot"

	"github.com/edgard/telellmgram/internal/analysis"
)

// RegisteredHandler represents a command handler with its description and middleware.
// It encapsulates all information needed to register and document a command.
type RegisteredHandler struct {
	HandlerType tgbot.HandlerType
	Pattern     string
	Handler     tgbot.HandlerFunc
	Middleware  []tgbot.Middleware
	MatchType   tgbot.MatchType
}

// analysisCommands maps each analysis command to the variant it runs.
var analysisCommands = map[string]analysis.Variant{
	"analyze": analysis.SingleMedia,
	"topic":   analysis.Topic,
	"window":  analysis.TimeWindow,
	"trend":   analysis.Trend,
	"user":    analysis.Individual,
}

// RegisterAllCommands initializes and returns a map of all available bot commands.
// Everything except /start and /help is admin only.
func RegisterAllCommands(deps HandlerDeps) map[string]RegisteredHandler {
	handlers := make(map[string]RegisteredHandler)

	handlers["/start"] = RegisteredHandler{
		HandlerType: tgbot.HandlerTypeMessageText,
		Pattern:     "start",
		Handler:     NewStartHandler(deps),
		MatchType:   tgbot.MatchTypeCommandStartOnly,
	}
	handlers["/help"] = RegisteredHandler{
		HandlerType: tgbot.HandlerTypeMessageText,
		Pattern:     "help",
		Handler:     NewHelpHandler(deps),
		MatchType:   tgbot.MatchTypeCommandStartOnly,
	}

	adminMiddleware := []tgbot.Middleware{AdminOnly(deps)}

	handlers["/media"] = RegisteredHandler{
		HandlerType: tgbot.HandlerTypeMessageText,
		Pattern:     "media",
		Handler:     NewMediaHandler(deps),
		MatchType:   tgbot.MatchTypeCommandStartOnly,
		Middleware:  adminMiddleware,
	}
	for command, variant := range analysisCommands {
		handlers["/"+command] = RegisteredHandler{
			HandlerType: tgbot.HandlerTypeMessageText,
			Pattern:     command,
			Handler:     NewAnalyzeHandler(deps, variant),
			MatchType:   tgbot.MatchTypeCommandStartOnly,
			Middleware:  adminMiddleware,
		}
	}

	return handlers
}
