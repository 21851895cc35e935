package surveilans

import (
	"sort"
	"sync"

	"github.com/valyala/fasthttp"
)

// session is the cookie jar shared by every request of a Client. The portal
// keeps the primed regency and the form state behind its PHP session cookie,
// so losing a cookie silently turns every later query into an empty page.
type session struct {
	mu      sync.Mutex
	cookies map[string]string
}

func newSession() *session {
	return &session{cookies: make(map[string]string)}
}

func (s *session) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cookies = make(map[string]string)
}

func (s *session) set(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if value == "" {
		delete(s.cookies, key)
		return
	}
	s.cookies[key] = value
}

// names returns the cookie names currently held, sorted.
func (s *session) names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.cookies))
	for k := range s.cookies {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func (s *session) requestHook() RequestHook {
	return func(req *fasthttp.Request) error {
		s.mu.Lock()
		defer s.mu.Unlock()
		for k, v := range s.cookies {
			req.Header.SetCookie(k, v)
		}
		return nil
	}
}

func (s *session) responseHook() ResponseHook {
	return func(resp *fasthttp.Response) error {
		resp.Header.VisitAllCookie(func(key, value []byte) {
			c := fasthttp.AcquireCookie()
			defer fasthttp.ReleaseCookie(c)

			if err := c.ParseBytes(value); err != nil {
				return
			}
			s.set(string(c.Key()), string(c.Value()))
		})
		return nil
	}
}
