/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package log

import (
	"regexp"
	"strings"
)

// FieldMaskFormat defines how a masked field appears in a message.
type FieldMaskFormat string

// Field mask formats.
const (
	FieldMaskFormatHTTPHeader FieldMaskFormat = "http_header"
	FieldMaskFormatJSON       FieldMaskFormat = "json"
	FieldMaskFormatURLEncoded FieldMaskFormat = "urlencoded"
)

const maskedValue = "***"

// MaskingRuleConfig is a configuration for a single masking rule.
type MaskingRuleConfig struct {
	Field   string            `mapstructure:"field" yaml:"field" json:"field"`
	Formats []FieldMaskFormat `mapstructure:"formats" yaml:"formats" json:"formats"`
}

// DefaultMasks hide the upstream credentials: the bearer header and api key fields.
var DefaultMasks = []MaskingRuleConfig{
	{Field: "Authorization", Formats: []FieldMaskFormat{FieldMaskFormatHTTPHeader, FieldMaskFormatJSON}},
	{Field: "api_key", Formats: []FieldMaskFormat{FieldMaskFormatJSON, FieldMaskFormatURLEncoded}},
	{Field: "apiKey", Formats: []FieldMaskFormat{FieldMaskFormatJSON, FieldMaskFormatURLEncoded}},
}

type mask struct {
	field  string // lowercase; "" for literal secrets
	regExp *regexp.Regexp
	repl   string
}

// Masker replaces secrets in strings.
type Masker struct {
	masks []mask
}

// NewMasker creates a Masker from field rules and a set of literal secret values.
func NewMasker(rules []MaskingRuleConfig, secrets ...string) *Masker {
	m := &Masker{}
	for _, rule := range rules {
		field := regexp.QuoteMeta(rule.Field)
		for _, format := range rule.Formats {
			var re, repl string
			switch format {
			case FieldMaskFormatHTTPHeader:
				re, repl = `(?i)`+field+`:\s*[^\r\n]+`, rule.Field+": "+maskedValue
			case FieldMaskFormatJSON:
				re, repl = `(?i)"`+field+`"\s*:\s*"(?:[^"\\]|\\.)*"`, `"`+rule.Field+`":"`+maskedValue+`"`
			case FieldMaskFormatURLEncoded:
				re, repl = `(?i)`+field+`\s*=\s*[^&\s]+`, rule.Field+"="+maskedValue
			default:
				continue
			}
			m.masks = append(m.masks, mask{strings.ToLower(rule.Field), regexp.MustCompile(re), repl})
		}
	}
	for _, secret := range secrets {
		if secret == "" {
			continue
		}
		m.masks = append(m.masks, mask{regExp: regexp.MustCompile(regexp.QuoteMeta(secret)), repl: maskedValue})
	}
	return m
}

// Mask returns s with every known secret replaced.
func (m *Masker) Mask(s string) string {
	lower := strings.ToLower(s)
	for _, mk := range m.masks {
		if mk.field != "" && !strings.Contains(lower, mk.field) {
			continue
		}
		s = mk.regExp.ReplaceAllString(s, mk.repl)
	}
	return s
}
