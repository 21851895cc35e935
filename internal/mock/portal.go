// Package mock serves a stand-in for the surveillance portal. It keeps the
// same session rules as the real site: no cookie, no data; no prime, no
// district list.
package mock

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
)

const sessionCookie = "PHPSESSID"

type Option struct {
	Code string
	Name string
}

// Query is the decoded form of one data request.
type Query struct {
	Regency  string
	District string
	Disease  string
	AgeGroup string
	Sex      string
	Status   string
	Month    int
	Year     int
}

// Key joins the stratum fields so tests can address one combination.
func (q Query) Key() string {
	return strings.Join([]string{q.Regency, q.District, q.Status, q.AgeGroup, q.Sex}, "/")
}

type Portal struct {
	Diseases []Option
	// Districts maps a regency code to its kecamatan.
	Districts map[string][]Option
	// Table renders the result fragment for a query. Returning "" means no
	// table, which is how the portal reports zero cases.
	Table func(q Query) string
	// Drop closes the connection without answering for the first N
	// attempts of a query key.
	Drop map[string]int
	// Reject answers a query key with the given status.
	Reject map[string]int
	// BrokenDistricts lists regencies whose district endpoint answers
	// without any option script.
	BrokenDistricts map[string]bool

	mu        sync.Mutex
	nextID    int
	sessions  map[string]*sessionState
	attempts  map[string]int
	queries   []Query
	handshake int
}

type sessionState struct {
	primed bool
}

func NewPortal() *Portal {
	return &Portal{
		Districts: map[string][]Option{},
		Drop:      map[string]int{},
		Reject:    map[string]int{},
		sessions:  map[string]*sessionState{},
		attempts:  map[string]int{},
	}
}

func (p *Portal) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case strings.HasSuffix(r.URL.Path, "/rs_rekap.php") && r.Method == http.MethodGet:
		p.serveForm(w, r)
	case strings.HasSuffix(r.URL.Path, "/rs_rekap.php") && r.Method == http.MethodPost:
		p.serveQuery(w, r)
	case strings.HasSuffix(r.URL.Path, "/zz_getkab.php"):
		p.servePrime(w, r)
	case strings.HasSuffix(r.URL.Path, "/zz_getkec.php"):
		p.serveDistricts(w, r)
	default:
		http.NotFound(w, r)
	}
}

// Queries returns every query that reached the data endpoint with a valid
// session, in arrival order.
func (p *Portal) Queries() []Query {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Query(nil), p.queries...)
}

// Attempts reports how many times a query key was posted, dropped
// attempts included.
func (p *Portal) Attempts(key string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.attempts[key]
}

func (p *Portal) Handshakes() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.handshake
}

func (p *Portal) session(r *http.Request) *sessionState {
	c, err := r.Cookie(sessionCookie)
	if err != nil {
		return nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.sessions[c.Value]
}

func (p *Portal) serveForm(w http.ResponseWriter, r *http.Request) {
	p.mu.Lock()
	p.nextID++
	p.handshake++
	id := fmt.Sprintf("sess%04d", p.nextID)
	p.sessions[id] = &sessionState{}
	p.mu.Unlock()

	http.SetCookie(w, &http.Cookie{Name: sessionCookie, Value: id, Path: "/"})
	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	var b strings.Builder
	b.WriteString(`<html><body><form method="post"><select id="penyakit" name="penyakit">`)
	b.WriteString(`<option value="0">-- Pilih Penyakit --</option>`)
	for _, d := range p.Diseases {
		fmt.Fprintf(&b, `<option value="%s">%s</option>`, d.Code, d.Name)
	}
	b.WriteString(`</select></form></body></html>`)
	fmt.Fprint(w, b.String())
}

func (p *Portal) servePrime(w http.ResponseWriter, r *http.Request) {
	s := p.session(r)
	if s == nil {
		w.WriteHeader(http.StatusOK)
		return
	}
	p.mu.Lock()
	s.primed = true
	p.mu.Unlock()

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, `<script>document.getElementById("kab").options.length = 0;</script>`)
}

func (p *Portal) serveDistricts(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	s := p.session(r)
	p.mu.Lock()
	primed := s != nil && s.primed
	p.mu.Unlock()
	regency := r.URL.Query().Get("kk")
	if !primed || p.BrokenDistricts[regency] {
		fmt.Fprint(w, `<script>// session expired</script>`)
		return
	}

	var b strings.Builder
	b.WriteString("<script>\n")
	b.WriteString(`kec.options[0] = new Option("-- Semua Kecamatan --", "0");` + "\n")
	for i, d := range p.Districts[regency] {
		fmt.Fprintf(&b, "kec.options[%d] = new Option(\"%s\", \"%s\");\n", i+1, d.Name, d.Code)
	}
	b.WriteString("</script>")
	fmt.Fprint(w, b.String())
}

func (p *Portal) serveQuery(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	month, _ := strconv.Atoi(r.PostForm.Get("hpar1"))
	year, _ := strconv.Atoi(r.PostForm.Get("hpar2"))
	q := Query{
		Regency:  r.PostForm.Get("kab"),
		District: r.PostForm.Get("kec"),
		Disease:  r.PostForm.Get("penyakit"),
		AgeGroup: r.PostForm.Get("golum"),
		Sex:      r.PostForm.Get("jk"),
		Status:   r.PostForm.Get("sp"),
		Month:    month,
		Year:     year,
	}
	key := q.Key()

	p.mu.Lock()
	p.attempts[key]++
	attempt := p.attempts[key]
	drop := p.Drop[key]
	status := p.Reject[key]
	p.mu.Unlock()

	if attempt <= drop {
		hijackAndClose(w)
		return
	}
	if status != 0 {
		w.WriteHeader(status)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if p.session(r) == nil {
		fmt.Fprint(w, `<div class="alert">Sesi berakhir</div>`)
		return
	}

	p.mu.Lock()
	p.queries = append(p.queries, q)
	p.mu.Unlock()

	body := ""
	if p.Table != nil {
		body = p.Table(q)
	}
	if body == "" {
		body = `<div class="alert">Data tidak ditemukan</div>`
	}
	fmt.Fprint(w, body)
}

func hijackAndClose(w http.ResponseWriter) {
	hj, ok := w.(http.Hijacker)
	if !ok {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	conn, _, err := hj.Hijack()
	if err != nil {
		return
	}
	conn.Close()
}
