package constants

import "time"

// Persona constants
const (
	// PersonaName is how the agent refers to itself in logs
	PersonaName = "陈玉楼"
)

// Dispatch loop constants
const (
	// DefaultMaxIterations caps Deciding→Invoking cycles per run
	DefaultMaxIterations = 5

	// DefaultMaxUnknownToolRetries is how many unknown tool names the model
	// may emit in one run before the loop gives up
	DefaultMaxUnknownToolRetries = 2

	// DefaultToolTimeout bounds a single tool invocation
	DefaultToolTimeout = 30 * time.Second

	// DefaultLLMMaxRetries is the number of attempts per model request
	DefaultLLMMaxRetries = 3
)

// Session constants
const (
	DefaultSessionIdleTimeout = 30 * time.Minute
	DefaultSessionMaxTurns    = 20
)

// Knowledge base constants
const (
	// KnowledgeSearchLimit is the number of passages returned to the model
	KnowledgeSearchLimit = 5

	// KnowledgeChunkRunes is the passage size used when ingesting documents
	KnowledgeChunkRunes = 800

	// MaxToolOutputRunes truncates tool output before it enters the scratchpad
	MaxToolOutputRunes = 4000
)
