package booking

import "time"

func (s *Service) SetReference(reference func(width int) string) {
	s.reference = reference
}

func (s *Service) SetNow(now func() time.Time) {
	s.now = now
}
