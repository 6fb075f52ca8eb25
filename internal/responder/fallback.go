package responder

import (
	"github.com/cespare/xxhash/v2"
)

// FallbackPhrases are spoken when a reply cannot be generated or played
var FallbackPhrases = [...]string{
	"I apologize, but I'm having trouble understanding. Could you rephrase that?",
	"I'm sorry, I couldn't process that request. Could you try again?",
	"I'm not sure I understood correctly. Could you explain differently?",
	"There seems to be an issue. Could you ask in a different way?",
}

// FallbackFor picks a fallback phrase from the error message. The same message
// always yields the same phrase.
func FallbackFor(err error) string {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	return FallbackPhrases[xxhash.Sum64String(msg)%uint64(len(FallbackPhrases))]
}
