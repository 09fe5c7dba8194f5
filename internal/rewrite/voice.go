// Package rewrite asks a model to rewrite embedded strings in a chosen voice
// and patches the results back into the program image. Rewrites must fit in
// the original string's storage and keep its printf conversions intact.
package rewrite

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidVoice is returned for unknown voices and incomplete custom voices.
var ErrInvalidVoice = errors.New("invalid voice")

// Voice selects the persona used for rewriting.
type Voice string

const (
	VoiceSassy             Voice = "sassy"
	VoicePassiveAggressive Voice = "passive-aggressive"
	VoicePirate            Voice = "pirate"
	VoiceCustom            Voice = "custom"
)

// Persona is the wording a voice uses in the prompt: "You are a <Noun>"
// and "make the message more <Adjective>".
type Persona struct {
	Noun      string `json:"noun" mapstructure:"noun"`
	Adjective string `json:"adjective" mapstructure:"adjective"`
}

var builtinPersonas = map[Voice]Persona{
	VoiceSassy:             {Noun: "sassy person", Adjective: "sassy"},
	VoicePassiveAggressive: {Noun: "passive aggressive person", Adjective: "passive aggressive"},
	VoicePirate:            {Noun: "pirate", Adjective: "piratey"},
}

// ParseVoice accepts a voice name, tolerating "_" for "-".
func ParseVoice(s string) (Voice, error) {
	v := Voice(strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "_", "-"))
	if _, ok := builtinPersonas[v]; ok || v == VoiceCustom {
		return v, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidVoice, s)
}

// Resolve returns the persona for v. Custom voices need both words.
func (v Voice) Resolve(custom Persona) (Persona, error) {
	if v == VoiceCustom {
		if custom.Noun == "" || custom.Adjective == "" {
			return Persona{}, fmt.Errorf("%w: custom voice requires noun and adjective", ErrInvalidVoice)
		}
		return custom, nil
	}
	p, ok := builtinPersonas[v]
	if !ok {
		return Persona{}, fmt.Errorf("%w: %q", ErrInvalidVoice, string(v))
	}
	return p, nil
}
