package analysis

import (
	"fmt"

	"github.com/osutaiko/Pawnpulse/src/rules"
)

// TranslationError reports the first move token of a line that could not be played.
type TranslationError struct {
	Index int
	Token string
	Err   error
}

func (e *TranslationError) Error() string {
	return fmt.Sprintf("translate move %d (%s): %v", e.Index, e.Token, e.Err)
}

func (e *TranslationError) Unwrap() error {
	return e.Err
}

// Translate replays engine move tokens from fen and returns their SAN.
// Nothing is returned on failure; a line is either fully translated or rejected.
func Translate(fen string, tokens []string) ([]string, error) {
	base, err := rules.NewPosition(fen)
	if err != nil {
		return nil, err
	}
	return TranslateFrom(base, tokens)
}

// TranslateFrom is Translate for an already decoded position. base is not modified.
func TranslateFrom(base *rules.Position, tokens []string) ([]string, error) {
	scratch := base
	sans := make([]string, 0, len(tokens))
	for i, tok := range tokens {
		next, san, err := scratch.Apply(tok)
		if err != nil {
			return nil, &TranslationError{Index: i, Token: tok, Err: err}
		}
		sans = append(sans, san)
		scratch = next
	}
	return sans, nil
}
