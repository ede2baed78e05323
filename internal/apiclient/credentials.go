package apiclient

import "sync"

// Credentials is the request context shared by every call a Client makes.
// The session layer owns writes; the client only reads.
type Credentials struct {
	mu    sync.RWMutex
	token string
}

// NewCredentials returns an empty credential context.
func NewCredentials() *Credentials {
	return &Credentials{}
}

// SetBearer attaches token to every subsequent request.
func (c *Credentials) SetBearer(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

// Clear removes the credential.
func (c *Credentials) Clear() {
	c.SetBearer("")
}

// Authorization returns the header value, or "" when no credential is set.
func (c *Credentials) Authorization() string {
	if c == nil {
		return ""
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.token == "" {
		return ""
	}
	return "Bearer " + c.token
}
