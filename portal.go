package surveilans

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

const (
	rekapPath    = "rs_rekap.php"
	regencyPath  = "zz_getkab.php"
	districtPath = "zz_getkec.php"

	diseaseSelector = "select#penyakit option"

	DefaultPacingDelay = 500 * time.Millisecond
)

var errStalePrime = errors.New("district list requested for a regency that is no longer primed")

var optionPattern = regexp.MustCompile(`new Option\s*\(\s*["'](.+?)["']\s*,\s*["'](.+?)["']\s*\)`)

type Disease struct {
	Code string
	Name string
}

// QueryKey identifies one server-side data request.
type QueryKey struct {
	Disease string
	Month   Month
	Stratum
}

func (k QueryKey) form() url.Values {
	form := url.Values{}
	form.Set("prov", ProvinceCode)
	form.Set("kab", k.Regency.Code())
	form.Set("kec", k.District.Code)
	form.Set("rs", "0")
	form.Set("penyakit", k.Disease)
	form.Set("golum", k.AgeGroup.Code())
	form.Set("jk", k.Sex.Code())
	form.Set("sp", k.Status.Code())
	form.Set("jdata", "1")
	form.Set("hpar1", strconv.Itoa(int(k.Month.Month)))
	form.Set("hpar2", strconv.Itoa(k.Month.Year))
	form.Set("tbl_proses", "P R O S E S")
	return form
}

func (k QueryKey) String() string {
	return fmt.Sprintf("%s/%s/%s/%s/%s/%s/%s",
		k.Month, k.Regency.Label(), k.District.Name, k.Status, k.AgeGroup.Label(), k.Sex, k.Disease)
}

func (k QueryKey) logContext() LogContext {
	return LogContext{
		"month":    k.Month.String(),
		"regency":  k.Regency.Label(),
		"district": k.District.Name,
		"status":   k.Status.Label(),
		"ageGroup": k.AgeGroup.Label(),
		"sex":      k.Sex.Label(),
	}
}

// Portal speaks the surveillance portal's form protocol over one Client.
type Portal struct {
	client  *Client
	clock   Clock
	pacer   *pacer
	logger  Logger
	metrics *Metrics

	queryTimeout time.Duration
	listTimeout  time.Duration
	backoffOpts  []exponentialBackoffOptionFunc
	backoffLimit []exponentialBackoffOptionFunc
	random       randomWrapper

	// generation increases on every Prime; a Primed handle is only valid
	// while its generation is current.
	generation uint64
}

type portalOptionFunc optionFunc[*Portal]

func WithPortalClock(clock Clock) portalOptionFunc {
	return func(p *Portal) error {
		p.clock = clock
		return nil
	}
}

func WithPortalLogger(logger Logger) portalOptionFunc {
	return func(p *Portal) error {
		p.logger = logger
		return nil
	}
}

func WithPortalMetrics(m *Metrics) portalOptionFunc {
	return func(p *Portal) error {
		p.metrics = m
		return nil
	}
}

// WithPacingDelay sets the pause after every query. Zero disables pacing.
func WithPacingDelay(d time.Duration) portalOptionFunc {
	return func(p *Portal) error {
		if d < 0 {
			return errInvalidDelay
		}
		p.pacer.delay = d
		return nil
	}
}

func WithQueryTimeout(d time.Duration) portalOptionFunc {
	return func(p *Portal) error {
		if d <= 0 {
			return errInvalidTimeout
		}
		p.queryTimeout = d
		return nil
	}
}

func WithListTimeout(d time.Duration) portalOptionFunc {
	return func(p *Portal) error {
		if d <= 0 {
			return errInvalidTimeout
		}
		p.listTimeout = d
		return nil
	}
}

// WithRetry configures the query retry policy: total attempts, first wait
// and growth factor.
func WithRetry(maxAttempts uint8, initial time.Duration, multiplier float64) portalOptionFunc {
	return func(p *Portal) error {
		opts := []exponentialBackoffOptionFunc{
			withMaxAttempt(maxAttempts),
			withMinDelay(initial),
			withMultiplier(multiplier),
		}
		if _, err := newExponentialBackoff(opts...); err != nil {
			return err
		}
		p.backoffOpts = opts
		return nil
	}
}

// WithRetryLimits caps each retry wait at maxDelay and adds up to
// jitter*delay of random extra wait.
func WithRetryLimits(maxDelay time.Duration, jitter float64) portalOptionFunc {
	return func(p *Portal) error {
		opts := []exponentialBackoffOptionFunc{withMaxDelay(maxDelay), withJitter(jitter)}
		if _, err := newExponentialBackoff(opts...); err != nil {
			return err
		}
		p.backoffLimit = opts
		return nil
	}
}

func withRetryRandom(r randomWrapper) portalOptionFunc {
	return func(p *Portal) error {
		p.random = r
		return nil
	}
}

func NewPortal(client *Client, opts ...portalOptionFunc) (*Portal, error) {
	p := &Portal{
		client:       client,
		clock:        realClock{},
		logger:       newNopLogger(),
		queryTimeout: DefaultTimeout,
		listTimeout:  DefaultListTimeout,
	}
	p.pacer = newPacer(p.clock, DefaultPacingDelay)

	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, err
		}
	}
	p.pacer.clock = p.clock

	return p, nil
}

// Handshake loads the query form page, which opens the server-side session.
// Nothing else works before it succeeds.
func (p *Portal) Handshake(ctx context.Context) (*goquery.Document, error) {
	resp, err := p.client.Get(ctx, rekapPath, nil, p.queryTimeout)
	if err != nil {
		return nil, &SessionError{Stage: "handshake", Err: err}
	}
	p.logger.Debug("Session initialized", LogContext{"cookies": p.client.session.names()})
	return resp.Document(), nil
}

// Diseases lists the disease codes offered by the query form, in page order.
func (p *Portal) Diseases(ctx context.Context) ([]Disease, error) {
	doc, err := p.Handshake(ctx)
	if err != nil {
		return nil, err
	}
	return ParseDiseases(doc), nil
}

// ParseDiseases reads the disease select element, skipping the placeholder.
func ParseDiseases(doc *goquery.Document) []Disease {
	var out []Disease
	doc.Find(diseaseSelector).Each(func(_ int, s *goquery.Selection) {
		code, ok := s.Attr("value")
		code = strings.TrimSpace(code)
		if !ok || code == "" || code == "0" {
			return
		}
		out = append(out, Disease{Code: code, Name: strings.TrimSpace(s.Text())})
	})
	return out
}

// Primed is proof that the session has been primed for a regency. The
// district list endpoint answers for whatever was primed last, so a Primed
// handle stops working as soon as another Prime happens.
type Primed struct {
	portal     *Portal
	regency    Regency
	generation uint64
}

func (pr *Primed) Regency() Regency { return pr.regency }

// Prime issues the regency handshake that the district list depends on.
func (p *Portal) Prime(ctx context.Context, regency Regency) (*Primed, error) {
	p.generation++
	params := url.Values{"kp": {ProvinceCode}}
	if _, err := p.client.Get(ctx, regencyPath, params, p.listTimeout); err != nil {
		return nil, &SessionError{Stage: "prime " + regency.Label(), Err: err}
	}
	return &Primed{portal: p, regency: regency, generation: p.generation}, nil
}

// Districts lists the kecamatan of the primed regency. It is never retried:
// a failure makes the caller skip the regency for the month.
func (pr *Primed) Districts(ctx context.Context) ([]District, error) {
	p := pr.portal
	if pr.generation != p.generation {
		return nil, errStalePrime
	}

	params := url.Values{"kp": {ProvinceCode}, "kk": {pr.regency.Code()}}
	resp, err := p.client.Get(ctx, districtPath, params, p.listTimeout)
	if err != nil {
		return nil, err
	}
	return ParseDistricts(string(resp.Body))
}

// ParseDistricts extracts the option pairs the endpoint emits as inline
// script. A response with no option at all returns ErrNoSubregions; one with
// only the placeholder returns an empty list.
func ParseDistricts(body string) ([]District, error) {
	matches := optionPattern.FindAllStringSubmatch(body, -1)
	if len(matches) == 0 {
		return nil, ErrNoSubregions
	}

	out := make([]District, 0, len(matches))
	seen := make(map[string]bool, len(matches))
	for _, m := range matches {
		name, code := m[1], m[2]
		if code == "0" || seen[code] {
			continue
		}
		seen[code] = true
		out = append(out, District{Code: code, Name: name})
	}
	return out, nil
}

// Query posts one query key with the retry policy and then waits out the
// pacing delay. Transient failures are retried; once attempts run out the
// error wraps ErrNoResponse. A rejected status is returned immediately.
func (p *Portal) Query(ctx context.Context, key QueryKey) (*Response, error) {
	opts := append(append([]exponentialBackoffOptionFunc{}, p.backoffOpts...), p.backoffLimit...)
	if p.random != nil {
		opts = append(opts, withRandomImp(p.random))
	}
	eb, err := newExponentialBackoff(opts...)
	if err != nil {
		return nil, err
	}

	form := key.form()
	var resp *Response
	op := func() error {
		r, err := p.client.Post(ctx, rekapPath, form, p.queryTimeout)
		if err != nil {
			return err
		}
		resp = r
		return nil
	}
	notify := func(attempt uint8, delay time.Duration, err error) {
		p.metrics.retried()
		p.logger.Warn("Network error, retrying", LogContext{
			"key":     key.String(),
			"attempt": fmt.Sprintf("%d/%d", attempt, eb.GetMaxAttempt()),
			"delay":   delay.String(),
			"err":     err.Error(),
		})
	}

	attempts, err := retry(ctx, p.clock, op, eb, notify)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}
	if pauseErr := p.pacer.Done(ctx); pauseErr != nil {
		return nil, pauseErr
	}

	if err != nil {
		if isRetryable(err) {
			return nil, fmt.Errorf("%w (%d attempts): %w", ErrNoResponse, attempts, err)
		}
		return nil, err
	}
	return resp, nil
}
