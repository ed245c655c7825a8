package mops

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/phuslu/log"

	mopshttp "github.com/YenHsinCHEN/MopsDownloader/internal/http"
)

const (
	// DefaultOrigin is the filings portal serving the document listings.
	DefaultOrigin = "https://doc.twse.com.tw"

	// DefaultListingPath is the endpoint used for both the listing query
	// and the follow-up POST.
	DefaultListingPath = "server-java/t57sb01"

	// NoDataMarker is the phrase the portal prints when a query matches
	// nothing.
	NoDataMarker = "查無所需資料"

	// rocEpoch is the offset between Gregorian and Minguo years.
	rocEpoch = 1911
)

var (
	readfilePattern = regexp.MustCompile(`readfile2\("([^"]*)","([^"]*)","([^"]*)"\)`)
	pdfMagic        = []byte("%PDF")
)

// Client is the transport the resolver needs. *mopshttp.Client implements it.
type Client interface {
	GetText(ctx context.Context, rawURL string, query url.Values) (string, error)
	PostForm(ctx context.Context, rawURL string, form url.Values) (io.ReadCloser, error)
	Get(ctx context.Context, rawURL string) (io.ReadCloser, error)
}

// Query identifies one filing.
type Query struct {
	CompanyID string
	Year      string // Gregorian, e.g. "2024"
	Season    int    // 1..4, 0 when not applicable
	Type      ReportType
}

// Options configures a Resolver.
type Options struct {
	// Origin is the scheme and host of the portal.
	// Default: DefaultOrigin
	Origin string

	// ListingPath is the path of the listing endpoint relative to Origin.
	// Default: DefaultListingPath
	ListingPath string

	// Logger receives debug output. Default: log.DefaultLogger
	Logger *log.Logger
}

// Resolver walks the listing page, POST and optional intermediate page of
// the portal to obtain a filing. It holds no per-call state and is safe for
// concurrent use, although callers run it sequentially.
type Resolver struct {
	client     Client
	origin     *url.URL
	listingURL string
	logger     *log.Logger
}

// NewResolver creates a Resolver using client for all requests.
func NewResolver(client Client, opts Options) (*Resolver, error) {
	if opts.Origin == "" {
		opts.Origin = DefaultOrigin
	}
	if opts.ListingPath == "" {
		opts.ListingPath = DefaultListingPath
	}
	if opts.Logger == nil {
		opts.Logger = &log.DefaultLogger
	}

	origin, err := url.Parse(opts.Origin)
	if err != nil {
		return nil, fmt.Errorf("mops: parse origin: %w", err)
	}
	if origin.Scheme == "" || origin.Host == "" {
		return nil, fmt.Errorf("mops: origin %q must be absolute", opts.Origin)
	}

	listingURL, err := url.JoinPath(opts.Origin, opts.ListingPath)
	if err != nil {
		return nil, fmt.Errorf("mops: build listing url: %w", err)
	}

	return &Resolver{
		client:     client,
		origin:     origin,
		listingURL: listingURL,
		logger:     opts.Logger,
	}, nil
}

// Resolve fetches the document described by q. It never returns an error;
// every problem is folded into a NotFound or Failure outcome.
func (r *Resolver) Resolve(ctx context.Context, q Query) Outcome {
	year, err := strconv.Atoi(strings.TrimSpace(q.Year))
	if err != nil {
		return Failure("year format error")
	}

	query := url.Values{
		"step":     {"1"},
		"colorchg": {"1"},
		"co_id":    {q.CompanyID},
		"year":     {strconv.Itoa(year - rocEpoch)},
		"mtype":    {mtype(q.Type)},
	}
	if q.Type == Financial && q.Season > 0 {
		query.Set("seamon", strconv.Itoa(q.Season))
	}

	page, err := r.client.GetText(ctx, r.listingURL, query)
	if err != nil {
		return requestFailure("listing page request failed", err)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	if err != nil {
		return networkFailure(err)
	}
	if strings.Contains(doc.Find("body").Text(), NoDataMarker) {
		return NotFound(NoDataMarker + " (no matching data)")
	}

	link, ok := findFiling(doc, q.Type)
	if !ok {
		return NotFound("no downloadable PDF found")
	}

	r.logger.Debug().
		Str("type", q.Type.String()).
		Str("co_id", link.companyID).
		Str("filename", link.filename).
		Msg("found target link, posting")

	form := url.Values{
		"colorchg": {"1"},
		"step":     {"9"},
		"kind":     {link.kind},
		"co_id":    {link.companyID},
		"filename": {link.filename},
	}
	body, err := r.client.PostForm(ctx, r.listingURL, form)
	if err != nil {
		return requestFailure("POST request failed", err)
	}

	br := bufio.NewReader(body)
	head, err := br.Peek(len(pdfMagic))
	if err != nil && !errors.Is(err, io.EOF) {
		body.Close()
		return networkFailure(err)
	}
	switch {
	case len(head) == 0:
		body.Close()
		return requestFailure("POST request failed", mopshttp.ErrEmptyBody)
	case len(head) < len(pdfMagic):
		body.Close()
		return networkFailure(io.ErrUnexpectedEOF)
	case bytes.Equal(head, pdfMagic):
		return Success(&peekedBody{Reader: br, Closer: body})
	}

	return r.followIntermediate(ctx, br, body)
}

// followIntermediate reads the HTML wrapper returned by the POST and
// downloads the PDF it links to.
func (r *Resolver) followIntermediate(ctx context.Context, page io.Reader, closer io.Closer) Outcome {
	doc, err := goquery.NewDocumentFromReader(page)
	closer.Close()
	if err != nil {
		return networkFailure(err)
	}

	href, ok := doc.Find("a[href*='.pdf']").First().Attr("href")
	if !ok {
		return NotFound("no PDF link in intermediate page")
	}

	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return networkFailure(err)
	}
	finalURL := r.origin.ResolveReference(ref).String()

	r.logger.Debug().Str("url", finalURL).Msg("following intermediate page")

	pdf, err := r.client.Get(ctx, finalURL)
	if err != nil {
		return requestFailure("final PDF download failed", err)
	}
	return Success(pdf)
}

// filing is a parsed readfile2 anchor.
type filing struct {
	kind      string
	companyID string
	filename  string
}

// findFiling returns the first readfile2 anchor whose filename matches the
// report type.
func findFiling(doc *goquery.Document, t ReportType) (filing, bool) {
	var found filing
	var ok bool

	doc.Find("a[href*='readfile2']").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		href, _ := s.Attr("href")
		m := readfilePattern.FindStringSubmatch(strings.TrimPrefix(href, "javascript:"))
		if m == nil {
			return true
		}
		if !acceptsFilename(t, m[3]) {
			return true
		}
		found = filing{kind: m[1], companyID: m[2], filename: m[3]}
		ok = true
		return false
	})

	return found, ok
}

// acceptsFilename reports whether filename is the document wanted for t.
// AI1/AI2 are the consolidated and standalone financial statements, F04 the
// Chinese annual report.
func acceptsFilename(t ReportType, filename string) bool {
	switch t {
	case Financial:
		return strings.Contains(filename, "AI1") || strings.Contains(filename, "AI2")
	case Annual:
		return strings.Contains(filename, "F04")
	default:
		return false
	}
}

func mtype(t ReportType) string {
	if t == Annual {
		return "F"
	}
	return "A"
}

// requestFailure turns a request error into a Failure. Status and empty-body
// errors are prefixed with the step that failed; anything else is a
// transport error.
func requestFailure(step string, err error) Outcome {
	var statusErr *mopshttp.StatusError
	switch {
	case errors.As(err, &statusErr):
		return Failuref("%s: %s", step, statusErr.Error())
	case errors.Is(err, mopshttp.ErrEmptyBody):
		return Failuref("%s: empty body", step)
	default:
		return networkFailure(err)
	}
}

func networkFailure(err error) Outcome {
	return Failuref("network or parse error: %v", err)
}

// peekedBody keeps the bytes consumed by Peek in front of the stream.
type peekedBody struct {
	io.Reader
	io.Closer
}
