package state

import (
	"fmt"
	"time"
)

// Seed applies the one-time session initialization.
//
// _time is set if absent. When _program_initialized is absent it is set, the
// source state is merged in, and the program dates are derived from the
// source's program object. Subsequent calls leave the store untouched.
// Seed reports whether the one-time merge ran.
func (s *Store) Seed(source map[string]any, now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.data[SystemTime]; !ok {
		s.data[SystemTime] = now.Format(time.RFC3339)
	}

	if _, ok := s.data[ProgramInitialized]; ok {
		return false
	}
	s.data[ProgramInitialized] = true

	for k, v := range source {
		s.data[k] = normalize(v)
	}

	program, _ := source[ProgramKey].(map[string]any)
	if len(program) > 0 {
		if start, ok := program[StartDate]; ok {
			s.data[ProgramStartDate] = stringify(start)
			s.data[ProgramDatetime] = stringify(start)
		}
		if end, ok := program[EndDate]; ok {
			s.data[ProgramEndDate] = stringify(end)
		}
	}
	return true
}

func stringify(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}
