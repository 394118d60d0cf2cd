/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package middleware

import (
	"sync"
	"time"

	"github.com/ssgreg/logf"

	"github.com/predictdash/predictdash/log"
)

type loggableIntMap map[string]int64

func (lm loggableIntMap) EncodeLogfObject(e logf.FieldEncoder) error {
	for key, value := range lm {
		e.EncodeFieldInt64(key, value)
	}
	return nil
}

// LoggingParams stores parameters for the Logging middleware
// that may be modified dynamically by the other underlying middlewares/handlers.
// It's safe for concurrent use: outbound calls made on behalf of the request
// are executed by the dispatcher goroutine and report their timings here.
type LoggingParams struct {
	mu        sync.Mutex
	fields    []log.Field
	timeSlots loggableIntMap
}

// ExtendFields extends list of fields that will be logged by the Logging middleware.
func (lp *LoggingParams) ExtendFields(fields ...log.Field) {
	lp.mu.Lock()
	defer lp.mu.Unlock()
	lp.fields = append(lp.fields, fields...)
}

// AddTimeSlotInt sets (if new) or adds duration value to the element of the time_slots map.
func (lp *LoggingParams) AddTimeSlotInt(name string, dur int64) {
	lp.mu.Lock()
	defer lp.mu.Unlock()
	if lp.timeSlots == nil {
		lp.timeSlots = make(loggableIntMap, 1)
	}
	lp.timeSlots[name] += dur
}

// AddTimeSlotDurationInMs sets (if new) or adds duration value in milliseconds to the element of the time_slots map.
func (lp *LoggingParams) AddTimeSlotDurationInMs(name string, dur time.Duration) {
	lp.AddTimeSlotInt(name, dur.Milliseconds())
}

// getFields returns extra fields, with time slots included if withTimeSlots is set.
func (lp *LoggingParams) getFields(withTimeSlots bool) []log.Field {
	lp.mu.Lock()
	defer lp.mu.Unlock()
	fields := append([]log.Field{}, lp.fields...)
	if withTimeSlots && len(lp.timeSlots) != 0 {
		slots := make(loggableIntMap, len(lp.timeSlots))
		for k, v := range lp.timeSlots {
			slots[k] = v
		}
		fields = append(fields, log.Field{Key: "time_slots", Type: logf.FieldTypeObject, Any: slots})
	}
	return fields
}
