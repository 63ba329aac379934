package session

import "fmt"

// Loading reports whether a long operation is in progress.
func (s *Session) Loading() bool {
	value, _ := s.manager.Get(FieldLoading)
	loading, _ := value.(bool)
	return loading
}

// StartLoading raises the loading flag.
func (s *Session) StartLoading() {
	s.setLoading(true)
}

// StopLoading lowers the loading flag.
func (s *Session) StopLoading() {
	s.setLoading(false)
}

// WithLoading runs fn with the loading flag raised. The flag is lowered even
// when fn fails or panics.
func (s *Session) WithLoading(fn func() error) error {
	s.StartLoading()
	defer s.StopLoading()
	return fn()
}

func (s *Session) setLoading(loading bool) {
	if err := s.manager.SetFieldValue(FieldLoading, loading); err != nil {
		s.manager.AddError(fmt.Sprintf("Failed to set loading: %v", err))
	}
}
