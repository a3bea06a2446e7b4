package stages

import (
	"steelloop/internal/domain"
	"steelloop/internal/qualitygate"
	"steelloop/internal/vaultaudit"
)

const (
	lengthWindowLow  = 0.8
	lengthWindowHigh = 1.2

	// Used for the window bounds when the vault omits one length type.
	fallbackMinBase = 700
	fallbackMaxBase = 2200
)

// GateOptions derives quality-gate options for one draft from the user's
// vault. A nil vault yields options with no length target.
func GateOptions(vault *vaultaudit.Vault, lengthType domain.LengthType) qualitygate.Options {
	if vault == nil {
		return qualitygate.Options{}
	}
	opts := qualitygate.Options{
		BannedWords:  vault.VoiceDNA.BannedWords,
		SlopTriggers: vault.VoiceDNA.AISlopTriggers,
	}
	if lengths := vault.ContentStrategy.LengthInCharacters; lengths != nil {
		minBase, maxBase := float64(fallbackMinBase), float64(fallbackMaxBase)
		if target, ok := lengths.For(string(lengthType)); ok {
			minBase, maxBase = target, target
		}
		opts.TargetLength = &qualitygate.LengthWindow{
			Min: minBase * lengthWindowLow,
			Max: maxBase * lengthWindowHigh,
		}
	}
	return opts
}

// ScoreDraft runs the quality gate for one draft.
func ScoreDraft(content string, vault *vaultaudit.Vault, lengthType domain.LengthType) qualitygate.Result {
	return qualitygate.Score(content, GateOptions(vault, lengthType))
}
