package vaultaudit

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

// Vault is the typed view of an identity vault document.
type Vault struct {
	VoiceDNA         VoiceDNA         `json:"voice_dna"`
	HistoricalWins   []HistoricalWin  `json:"historical_wins"`
	ICP              ICP              `json:"icp"`
	VerbatimLanguage []string         `json:"verbatim_language"`
	ContentStrategy  ContentStrategy  `json:"content_strategy"`
	IndustryContext  *IndustryContext `json:"industry_context,omitempty"`
}

// VoiceDNA captures tone and vocabulary rules.
type VoiceDNA struct {
	ToneArchetype    string   `json:"tone_archetype"`
	SignaturePhrases []string `json:"signature_phrases"`
	BannedWords      []string `json:"banned_words"`
	EmojiUsage       string   `json:"emoji_usage"`
	AISlopTriggers   []string `json:"ai_slop_triggers,omitempty"`
}

// HistoricalWin is a past result with its quantified outcome and mechanism.
type HistoricalWin struct {
	ProjectName string `json:"project_name"`
	DataBomb    string `json:"data_bomb"`
	SecretMath  string `json:"secret_math"`
}

// ICP describes the ideal customer profile.
type ICP struct {
	CorePainPoint string `json:"core_pain_point"`
	DecisionMaker string `json:"decision_maker,omitempty"`
}

// ContentStrategy holds length and format preferences.
type ContentStrategy struct {
	PreferredPostLength string              `json:"preferred_post_length"`
	LengthInCharacters  *LengthInCharacters `json:"length_in_characters,omitempty"`
	FormatPreferences   FormatPreferences   `json:"format_preferences"`
	PostingFrequency    string              `json:"posting_frequency,omitempty"`
}

// LengthInCharacters is the target size of each draft length.
type LengthInCharacters struct {
	Short  float64 `json:"short"`
	Medium float64 `json:"medium"`
	Long   float64 `json:"long"`
}

// For returns the target for a length type name.
func (l LengthInCharacters) For(lengthType string) (float64, bool) {
	switch lengthType {
	case "short":
		return l.Short, l.Short > 0
	case "medium":
		return l.Medium, l.Medium > 0
	case "long":
		return l.Long, l.Long > 0
	default:
		return 0, false
	}
}

// FormatPreferences lists the formats the user will produce.
type FormatPreferences struct {
	WillingToCreate []string `json:"willing_to_create"`
	PrimaryFormat   string   `json:"primary_format"`
}

// IndustryContext is optional vocabulary guidance.
type IndustryContext struct {
	PrimaryIndustry   string             `json:"primary_industry,omitempty"`
	WritingGuidelines *WritingGuidelines `json:"writing_guidelines,omitempty"`
}

// WritingGuidelines lists industry jargon and metrics.
type WritingGuidelines struct {
	AppropriateJargon  []string `json:"appropriate_jargon,omitempty"`
	AppropriateMetrics []string `json:"appropriate_metrics,omitempty"`
}

// Decode reads a stored vault document. Fields with unexpected types make it
// fail; callers that only need hints should fall back to a zero Vault.
func Decode(raw []byte) (Vault, error) {
	var v Vault
	if len(raw) == 0 {
		return v, fmt.Errorf("decode vault: empty document")
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		return v, fmt.Errorf("decode vault: %w", err)
	}
	return v, nil
}

// ParseDocument converts a vault file into canonical JSON. YAML is chosen for
// .yaml/.yml names; everything else is read as JSON with comments allowed.
func ParseDocument(name string, data []byte) (json.RawMessage, error) {
	var tree any
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &tree); err != nil {
			return nil, fmt.Errorf("parse yaml vault: %w", err)
		}
	default:
		if err := json.Unmarshal(jsonc.ToJSON(data), &tree); err != nil {
			return nil, fmt.Errorf("parse json vault: %w", err)
		}
	}
	if _, ok := tree.(map[string]any); !ok {
		return nil, fmt.Errorf("vault document must be an object")
	}
	out, err := json.Marshal(tree)
	if err != nil {
		return nil, fmt.Errorf("encode vault: %w", err)
	}
	return out, nil
}
