package apiclient

import "context"

// Response describes a completed exchange as seen by interceptors.
type Response struct {
	Method string
	Path   string
	Status int
}

// Interceptor observes every response and error passing through a Client.
// res is nil when no response was received. Interceptors cannot replace or
// absorb err; the caller always receives it unchanged.
type Interceptor func(ctx context.Context, res *Response, err error)

// Use registers fn and returns an id for Eject.
func (c *Client) Use(fn Interceptor) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextID++
	c.interceptors = append(c.interceptors, registered{id: c.nextID, fn: fn})
	return c.nextID
}

// Eject removes a previously registered interceptor. Unknown ids are ignored.
func (c *Client) Eject(id int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, r := range c.interceptors {
		if r.id == id {
			c.interceptors = append(c.interceptors[:i], c.interceptors[i+1:]...)
			return
		}
	}
}

type registered struct {
	id int
	fn Interceptor
}

func (c *Client) intercept(ctx context.Context, res *Response, err error) {
	c.mu.RLock()
	snapshot := make([]registered, len(c.interceptors))
	copy(snapshot, c.interceptors)
	c.mu.RUnlock()

	for _, r := range snapshot {
		r.fn(ctx, res, err)
	}
}
