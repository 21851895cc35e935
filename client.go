package surveilans

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/valyala/fasthttp"
	"golang.org/x/net/html/charset"
)

const (
	DefaultUserAgent   = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"
	DefaultTimeout     = 30 * time.Second
	DefaultListTimeout = 15 * time.Second
)

type internalClient interface {
	DoTimeout(req *fasthttp.Request, resp *fasthttp.Response, timeout time.Duration) error
}

type documentCreator interface {
	NewDocumentFromReader(r io.Reader) (*goquery.Document, error)
}

type defaultDocumentCreator struct{}

func (d *defaultDocumentCreator) NewDocumentFromReader(r io.Reader) (*goquery.Document, error) {
	return goquery.NewDocumentFromReader(r)
}

type (
	RequestHook  func(req *fasthttp.Request) error
	ResponseHook func(resp *fasthttp.Response) error
)

type Request struct {
	Method  string
	Path    string
	Params  url.Values
	Form    url.Values
	Timeout time.Duration
}

type Response struct {
	URL         string
	StatusCode  int
	ContentType string
	Body        []byte
	document    *goquery.Document
}

// Document returns the parsed body. It is built once by the client.
func (r *Response) Document() *goquery.Document {
	return r.document
}

// Client issues requests against the portal over one cookie-carrying
// session. It is not safe for concurrent use: the portal keys its state on
// the session, so requests must be serialized anyway.
type Client struct {
	baseURL   string
	userAgent string
	referer   string
	timeout   time.Duration

	internal   internalClient
	docCreator documentCreator
	session    *session
	logger     Logger

	internalPreRequestHooks   []RequestHook
	internalPostResponseHooks []ResponseHook
	udPreRequestHooks         []RequestHook
	udPostResponseHooks       []ResponseHook
}

type clientOptionFunc optionFunc[*Client]

func WithBaseURL(baseURL string) clientOptionFunc {
	return func(c *Client) error {
		if !urlMatcher()(baseURL) {
			return errInvalidBaseURL
		}
		if !strings.HasSuffix(baseURL, "/") {
			baseURL += "/"
		}
		c.baseURL = baseURL
		return nil
	}
}

func WithTimeout(timeout time.Duration) clientOptionFunc {
	return func(c *Client) error {
		if timeout <= 0 {
			return errInvalidTimeout
		}
		c.timeout = timeout
		return nil
	}
}

func WithUserAgent(ua string) clientOptionFunc {
	return func(c *Client) error {
		c.userAgent = getOrDefault(&ua, DefaultUserAgent)
		return nil
	}
}

// WithReferer sets the Referer sent with every request. The portal rejects
// form posts that do not look like they came from its own page.
func WithReferer(referer string) clientOptionFunc {
	return func(c *Client) error {
		c.referer = referer
		return nil
	}
}

func WithPreRequestHooks(hooks ...RequestHook) clientOptionFunc {
	return func(c *Client) error {
		c.udPreRequestHooks = append(c.udPreRequestHooks, hooks...)
		return nil
	}
}

func WithPostResponseHooks(hooks ...ResponseHook) clientOptionFunc {
	return func(c *Client) error {
		c.udPostResponseHooks = append(c.udPostResponseHooks, hooks...)
		return nil
	}
}

func WithClientLogger(logger Logger) clientOptionFunc {
	return func(c *Client) error {
		c.logger = logger
		return nil
	}
}

func withInternalClient(ic internalClient) clientOptionFunc {
	return func(c *Client) error {
		c.internal = ic
		return nil
	}
}

func withDocumentCreator(dc documentCreator) clientOptionFunc {
	return func(c *Client) error {
		c.docCreator = dc
		return nil
	}
}

func withInternalPreRequestHooks(hooks ...RequestHook) clientOptionFunc {
	return func(c *Client) error {
		c.internalPreRequestHooks = append(c.internalPreRequestHooks, hooks...)
		return nil
	}
}

func withInternalPostResponseHooks(hooks ...ResponseHook) clientOptionFunc {
	return func(c *Client) error {
		c.internalPostResponseHooks = append(c.internalPostResponseHooks, hooks...)
		return nil
	}
}

func NewClient(opts ...clientOptionFunc) (*Client, error) {
	defaults := []clientOptionFunc{
		withInternalClient(&fasthttp.Client{
			Name:                     DefaultUserAgent,
			NoDefaultUserAgentHeader: true,

			// retries are counted by the query retry policy only
			MaxIdemponentCallAttempts: 1,
			RetryIf:                   func(*fasthttp.Request) bool { return false },
		}),
		withDocumentCreator(&defaultDocumentCreator{}),
	}
	return newClient(append(defaults, opts...)...)
}

func newClient(opts ...clientOptionFunc) (*Client, error) {
	c := &Client{
		userAgent: DefaultUserAgent,
		timeout:   DefaultTimeout,
		session:   newSession(),
		logger:    newNopLogger(),
	}

	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}

	c.internalPreRequestHooks = append(
		[]RequestHook{c.defaultHeadersHook(), c.session.requestHook()},
		c.internalPreRequestHooks...,
	)
	c.internalPostResponseHooks = append(
		[]ResponseHook{c.session.responseHook()},
		c.internalPostResponseHooks...,
	)

	return c, nil
}

func (c *Client) defaultHeadersHook() RequestHook {
	return func(req *fasthttp.Request) error {
		req.Header.Set("User-Agent", c.userAgent)
		req.Header.Set("X-Requested-With", "XMLHttpRequest")
		if c.referer != "" {
			req.Header.Set("Referer", c.referer)
		}
		return nil
	}
}

// URL resolves path against the base URL.
func (c *Client) URL(path string) string {
	return c.baseURL + strings.TrimPrefix(path, "/")
}

// ResetSession drops every cookie collected so far.
func (c *Client) ResetSession() {
	c.session.reset()
}

func (c *Client) Get(ctx context.Context, path string, params url.Values, timeout time.Duration) (*Response, error) {
	return c.do(ctx, &Request{
		Method:  fasthttp.MethodGet,
		Path:    path,
		Params:  params,
		Timeout: timeout,
	})
}

func (c *Client) Post(ctx context.Context, path string, form url.Values, timeout time.Duration) (*Response, error) {
	return c.do(ctx, &Request{
		Method:  fasthttp.MethodPost,
		Path:    path,
		Form:    form,
		Timeout: timeout,
	})
}

func (c *Client) do(ctx context.Context, request *Request) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return c.execute(request)
}

func (c *Client) build(request *Request, req *fasthttp.Request) error {
	target := c.URL(request.Path)
	if len(request.Params) > 0 {
		target += "?" + request.Params.Encode()
	}

	method := request.Method
	if method == "" {
		method = fasthttp.MethodGet
	}

	req.SetRequestURI(target)
	req.Header.SetMethod(method)
	if request.Form != nil {
		req.Header.SetContentType("application/x-www-form-urlencoded")
		req.SetBodyString(request.Form.Encode())
	}

	for _, hook := range c.internalPreRequestHooks {
		if err := hook(req); err != nil {
			return err
		}
	}
	for _, hook := range c.udPreRequestHooks {
		if err := hook(req); err != nil {
			return err
		}
	}

	return nil
}

func (c *Client) execute(request *Request) (*Response, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	if err := c.build(request, req); err != nil {
		return nil, err
	}

	method := string(req.Header.Method())
	target := req.URI().String()
	timeout := request.Timeout
	if timeout <= 0 {
		timeout = c.timeout
	}

	c.logger.Debug("Sending request", LogContext{"method": method, "url": target})
	if err := c.internal.DoTimeout(req, resp, timeout); err != nil {
		c.logger.Debug("Failed to execute request", LogContext{"url": target, "err": err.Error()})
		return nil, &NetworkError{
			Method:  method,
			URL:     target,
			timeout: errors.Is(err, fasthttp.ErrTimeout) || errors.Is(err, fasthttp.ErrDialTimeout),
			Err:     err,
		}
	}

	for _, hook := range c.internalPostResponseHooks {
		if err := hook(resp); err != nil {
			return nil, err
		}
	}
	for _, hook := range c.udPostResponseHooks {
		if err := hook(resp); err != nil {
			return nil, err
		}
	}

	status := resp.StatusCode()
	if status < 200 || status > 299 {
		return nil, &HTTPStatusError{Method: method, URL: target, StatusCode: status}
	}

	contentType := string(resp.Header.ContentType())
	body, err := decodeBody(resp.Body(), contentType)
	if err != nil {
		c.logger.Error("Failed to convert response body", LogContext{
			"url":               target,
			"sourceContentType": contentType,
			"targetContentType": "utf-8",
			"err":               err.Error(),
		})
		return nil, err
	}

	doc, err := c.docCreator.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		c.logger.Error("Failed to build goquery document", LogContext{"err": err.Error()})
		return nil, err
	}

	return &Response{
		URL:         target,
		StatusCode:  status,
		ContentType: contentType,
		Body:        body,
		document:    doc,
	}, nil
}

// decodeBody copies the response body out of the pooled fasthttp buffer and
// converts it to UTF-8 according to the declared content type.
func decodeBody(raw []byte, contentType string) ([]byte, error) {
	reader, err := charset.NewReader(bytes.NewReader(raw), contentType)
	if err != nil {
		return nil, err
	}
	return io.ReadAll(reader)
}
