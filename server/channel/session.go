package channel

// Session is the exclusive use of a Channel between Acquire and Close. A
// Session is meant to be driven by one caller at a time.
type Session struct {
	channel *Channel
	token   string
	cursor  int
}

// Token returns the opaque identifier of the session.
func (s *Session) Token() string {
	return s.token
}

// Channel returns the identity of the channel the session was opened on.
func (s *Session) Channel() ID {
	return s.channel.id
}

// Cursor returns the read offset into the current buffer contents.
func (s *Session) Cursor() int {
	s.channel.mu.Lock()
	defer s.channel.mu.Unlock()
	return s.cursor
}

// Write transforms up to Capacity bytes of data into the channel buffer,
// replacing whatever it held, and rewinds the read cursor. It returns the
// number of bytes accepted; anything past Capacity is silently dropped.
func (s *Session) Write(data []byte) (int, error) {
	return s.channel.write(s, data)
}

// Read returns at most max bytes of the transformed buffer starting at the
// session cursor and advances the cursor past them. Once the cursor reaches
// the end of the buffer Read returns an empty slice and a nil error.
func (s *Session) Read(max int) ([]byte, error) {
	return s.channel.read(s, max)
}

// Close releases the channel. Closing a session twice returns
// ErrStaleSession.
func (s *Session) Close() error {
	return s.channel.Release(s)
}
