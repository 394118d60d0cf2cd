/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package log

import (
	"errors"
	"fmt"

	"github.com/ssgreg/logf"
)

// StringMasker masks secrets in a string.
type StringMasker interface {
	Mask(s string) string
}

// MaskingLogger masks secrets in messages, string fields and error fields.
// Upstream transport errors embed the full request URL, so they go through the masker too.
type MaskingLogger struct {
	log    FieldLogger
	masker StringMasker
}

// NewMaskingLogger wraps l so that everything it logs is passed through the masker.
func NewMaskingLogger(l FieldLogger, m StringMasker) FieldLogger {
	return MaskingLogger{l, m}
}

func (l MaskingLogger) With(fs ...Field) FieldLogger {
	return MaskingLogger{l.log.With(l.maskFields(fs)...), l.masker}
}

func (l MaskingLogger) Debug(text string, fs ...Field) {
	l.log.Debug(l.masker.Mask(text), l.maskFields(fs)...)
}

func (l MaskingLogger) Info(text string, fs ...Field) {
	l.log.Info(l.masker.Mask(text), l.maskFields(fs)...)
}

func (l MaskingLogger) Warn(text string, fs ...Field) {
	l.log.Warn(l.masker.Mask(text), l.maskFields(fs)...)
}

func (l MaskingLogger) Error(text string, fs ...Field) {
	l.log.Error(l.masker.Mask(text), l.maskFields(fs)...)
}

func (l MaskingLogger) Debugf(format string, args ...interface{}) {
	l.Debug(fmt.Sprintf(format, args...))
}

func (l MaskingLogger) Infof(format string, args ...interface{}) {
	l.Info(fmt.Sprintf(format, args...))
}

func (l MaskingLogger) Warnf(format string, args ...interface{}) {
	l.Warn(fmt.Sprintf(format, args...))
}

func (l MaskingLogger) Errorf(format string, args ...interface{}) {
	l.Error(fmt.Sprintf(format, args...))
}

// AtLevel calls fn with a masking LogFunc if the level is enabled.
func (l MaskingLogger) AtLevel(level Level, fn func(logFunc LogFunc)) {
	l.log.AtLevel(level, func(logFunc LogFunc) {
		fn(func(msg string, fs ...Field) {
			logFunc(l.masker.Mask(msg), l.maskFields(fs)...)
		})
	})
}

func (l MaskingLogger) WithLevel(level Level) FieldLogger {
	return MaskingLogger{l.log.WithLevel(level), l.masker}
}

func (l MaskingLogger) maskFields(fields []Field) []Field {
	var masked []Field
	for i := range fields {
		replacement, changed := l.maskField(fields[i])
		if !changed {
			continue
		}
		if masked == nil {
			masked = append([]Field{}, fields...)
		}
		masked[i] = replacement
	}
	if masked == nil {
		return fields
	}
	return masked
}

func (l MaskingLogger) maskField(field Field) (Field, bool) {
	switch field.Type {
	case logf.FieldTypeBytesToString, logf.FieldTypeBytes, logf.FieldTypeRawBytes:
		s := string(field.Bytes)
		if m := l.masker.Mask(s); m != s {
			return String(field.Key, m), true
		}
	case logf.FieldTypeError:
		err, ok := field.Any.(error)
		if !ok || err == nil {
			return field, false
		}
		s := err.Error()
		if m := l.masker.Mask(s); m != s {
			return NamedError(field.Key, errors.New(m)), true
		}
	}
	return field, false
}
