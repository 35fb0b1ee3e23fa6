package session

// SetStatus forces the status without any guard. Tests only.
func (s *Store) SetStatus(status Status) {
	s.mu.Lock()
	s.state.Status = status
	s.mu.Unlock()
	s.changed()
}
