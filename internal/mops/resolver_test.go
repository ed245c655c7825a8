package mops

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	mopshttp "github.com/YenHsinCHEN/MopsDownloader/internal/http"
)

const listingWithFilings = `<html><body><table>
<tr><td><a href="javascript:readfile2(&#34;A&#34;,&#34;2330&#34;,&#34;2024Q1_2330_AI3.pdf&#34;)">AI3</a></td></tr>
<tr><td><a href="#">plain</a></td></tr>
<tr><td><a href="javascript:readfile2(broken)">broken</a></td></tr>
<tr><td><a href="javascript:readfile2(&#34;A&#34;,&#34;2330&#34;,&#34;2024Q1_2330_AI1.pdf&#34;)">AI1</a></td></tr>
<tr><td><a href="javascript:readfile2(&#34;A&#34;,&#34;2330&#34;,&#34;2024Q1_2330_AI2.pdf&#34;)">AI2</a></td></tr>
<tr><td><a href="javascript:readfile2(&#34;F&#34;,&#34;2330&#34;,&#34;2023_2330_20240604F04.pdf&#34;)">F04</a></td></tr>
</table></body></html>`

// fakePortal serves a listing page, a POST response and a final PDF.
type fakePortal struct {
	listing     string
	listingCode int
	postBody    string
	postCode    int
	finalBody   string
	finalCode   int

	mu       sync.Mutex
	requests []*http.Request
	forms    []url.Values
}

func (p *fakePortal) handler(t *testing.T) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
		}
		p.mu.Lock()
		p.requests = append(p.requests, r)
		p.forms = append(p.forms, r.Form)
		p.mu.Unlock()

		switch {
		case r.URL.Path == "/server-java/t57sb01" && r.Method == http.MethodGet:
			writeResponse(w, p.listingCode, p.listing)
		case r.URL.Path == "/server-java/t57sb01" && r.Method == http.MethodPost:
			writeResponse(w, p.postCode, p.postBody)
		case r.URL.Path == "/pdf/2024Q1_2330_AI1.pdf":
			writeResponse(w, p.finalCode, p.finalBody)
		default:
			http.NotFound(w, r)
		}
	})
}

func writeResponse(w http.ResponseWriter, code int, body string) {
	if code == 0 {
		code = http.StatusOK
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(code)
	io.WriteString(w, body)
}

func (p *fakePortal) requestCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.requests)
}

func (p *fakePortal) formAt(i int) url.Values {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.forms[i]
}

func (p *fakePortal) requestAt(i int) *http.Request {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.requests[i]
}

func newTestResolver(t *testing.T, p *fakePortal) *Resolver {
	t.Helper()

	server := httptest.NewServer(p.handler(t))
	t.Cleanup(server.Close)

	opts := mopshttp.DefaultOptions()
	opts.RequestsPerSecond = 0
	r, err := NewResolver(mopshttp.NewClient(opts), Options{Origin: server.URL})
	require.NoError(t, err)
	return r
}

func readOutcome(t *testing.T, o Outcome) string {
	t.Helper()
	require.Equal(t, StatusSuccess, o.Status, "reason: %s", o.Reason)
	defer o.Body.Close()
	data, err := io.ReadAll(o.Body)
	require.NoError(t, err)
	return string(data)
}

func TestResolveFinancialDirectPDF(t *testing.T) {
	p := &fakePortal{listing: listingWithFilings, postBody: "%PDF-1.4 financial"}
	r := newTestResolver(t, p)

	o := r.Resolve(context.Background(), Query{CompanyID: "2330", Year: "2024", Season: 1, Type: Financial})

	assert.Equal(t, "%PDF-1.4 financial", readOutcome(t, o))
	assert.Equal(t, 2, p.requestCount(), "a direct PDF must not trigger a third request")

	listing := p.formAt(0)
	assert.Equal(t, "1", listing.Get("step"))
	assert.Equal(t, "1", listing.Get("colorchg"))
	assert.Equal(t, "2330", listing.Get("co_id"))
	assert.Equal(t, "113", listing.Get("year"))
	assert.Equal(t, "1", listing.Get("seamon"))
	assert.Equal(t, "A", listing.Get("mtype"))

	post := p.formAt(1)
	assert.Equal(t, "9", post.Get("step"))
	assert.Equal(t, "1", post.Get("colorchg"))
	assert.Equal(t, "A", post.Get("kind"))
	assert.Equal(t, "2330", post.Get("co_id"))
	assert.Equal(t, "2024Q1_2330_AI1.pdf", post.Get("filename"), "first AI1/AI2 anchor wins")
}

func TestResolveAnnual(t *testing.T) {
	p := &fakePortal{listing: listingWithFilings, postBody: "%PDF-1.7 annual"}
	r := newTestResolver(t, p)

	o := r.Resolve(context.Background(), Query{CompanyID: "2330", Year: "2023", Type: Annual})

	assert.Equal(t, "%PDF-1.7 annual", readOutcome(t, o))
	assert.Equal(t, "F", p.formAt(0).Get("mtype"))
	assert.Equal(t, "112", p.formAt(0).Get("year"))
	assert.False(t, p.formAt(0).Has("seamon"))
	assert.Equal(t, "F", p.formAt(1).Get("kind"))
	assert.Equal(t, "2023_2330_20240604F04.pdf", p.formAt(1).Get("filename"))
}

func TestResolveUsesCompanyIDFromAnchor(t *testing.T) {
	listing := `<a href="javascript:readfile2(&#34;A&#34;,&#34;02330&#34;,&#34;x_AI2.pdf&#34;)">x</a>`
	p := &fakePortal{listing: listing, postBody: "%PDF"}
	r := newTestResolver(t, p)

	o := r.Resolve(context.Background(), Query{CompanyID: "2330", Year: "2024", Season: 2, Type: Financial})

	readOutcome(t, o)
	assert.Equal(t, "02330", p.formAt(1).Get("co_id"))
}

func TestResolveIntermediatePage(t *testing.T) {
	p := &fakePortal{
		listing:   listingWithFilings,
		postBody:  `<html><body><a href="/other.txt">txt</a><a href="/pdf/2024Q1_2330_AI1.pdf">download</a></body></html>`,
		finalBody: "%PDF-1.5 final",
	}
	r := newTestResolver(t, p)

	o := r.Resolve(context.Background(), Query{CompanyID: "2330", Year: "2024", Season: 1, Type: Financial})

	assert.Equal(t, "%PDF-1.5 final", readOutcome(t, o))
	assert.Equal(t, 3, p.requestCount())
	assert.Equal(t, "/pdf/2024Q1_2330_AI1.pdf", p.requestAt(2).URL.Path)
}

func TestResolveIntermediateWithoutPDFLink(t *testing.T) {
	p := &fakePortal{
		listing:  listingWithFilings,
		postBody: `<html><body><a href="/index.html">home</a></body></html>`,
	}
	r := newTestResolver(t, p)

	o := r.Resolve(context.Background(), Query{CompanyID: "2330", Year: "2024", Season: 1, Type: Financial})

	assert.Equal(t, StatusNotFound, o.Status)
	assert.Equal(t, "no PDF link in intermediate page", o.Reason)
	assert.Nil(t, o.Body)
	assert.Equal(t, 2, p.requestCount())
}

func TestResolveFinalDownloadFails(t *testing.T) {
	p := &fakePortal{
		listing:   listingWithFilings,
		postBody:  `<a href="/pdf/2024Q1_2330_AI1.pdf">download</a>`,
		finalCode: http.StatusInternalServerError,
	}
	r := newTestResolver(t, p)

	o := r.Resolve(context.Background(), Query{CompanyID: "2330", Year: "2024", Season: 1, Type: Financial})

	assert.Equal(t, StatusFailure, o.Status)
	assert.Equal(t, "final PDF download failed: 500 Internal Server Error", o.Reason)
}

func TestResolveNoDataMarker(t *testing.T) {
	// The marker wins even when matching anchors are present.
	p := &fakePortal{listing: `<html><body><p>查無所需資料</p>` + listingWithFilings + `</body></html>`}
	r := newTestResolver(t, p)

	o := r.Resolve(context.Background(), Query{CompanyID: "2330", Year: "2024", Season: 1, Type: Financial})

	assert.Equal(t, StatusNotFound, o.Status)
	assert.Contains(t, o.Reason, NoDataMarker)
	assert.Equal(t, 1, p.requestCount())
}

func TestResolveNoMatchingAnchor(t *testing.T) {
	tests := []struct {
		name    string
		listing string
		typ     ReportType
	}{
		{
			name:    "financial without AI1 or AI2",
			listing: `<a href="javascript:readfile2(&#34;A&#34;,&#34;2330&#34;,&#34;x_AI3.pdf&#34;)">x</a>`,
			typ:     Financial,
		},
		{
			name:    "filename filter is case sensitive",
			listing: `<a href="javascript:readfile2(&#34;F&#34;,&#34;2330&#34;,&#34;x_f04.pdf&#34;)">x</a>`,
			typ:     Annual,
		},
		{
			name:    "no readfile2 anchors",
			listing: `<a href="/somewhere">x</a>`,
			typ:     Annual,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &fakePortal{listing: tt.listing}
			r := newTestResolver(t, p)

			o := r.Resolve(context.Background(), Query{CompanyID: "2330", Year: "2024", Season: 1, Type: tt.typ})

			assert.Equal(t, StatusNotFound, o.Status)
			assert.Equal(t, "no downloadable PDF found", o.Reason)
			assert.Equal(t, 1, p.requestCount())
		})
	}
}

func TestResolveYearFormatError(t *testing.T) {
	p := &fakePortal{listing: listingWithFilings}
	r := newTestResolver(t, p)

	o := r.Resolve(context.Background(), Query{CompanyID: "2330", Year: "twenty", Type: Annual})

	assert.Equal(t, StatusFailure, o.Status)
	assert.Equal(t, "year format error", o.Reason)
	assert.Equal(t, 0, p.requestCount())
}

func TestResolveListingFailures(t *testing.T) {
	t.Run("status", func(t *testing.T) {
		p := &fakePortal{listingCode: http.StatusServiceUnavailable}
		r := newTestResolver(t, p)

		o := r.Resolve(context.Background(), Query{CompanyID: "2330", Year: "2024", Type: Annual})

		assert.Equal(t, StatusFailure, o.Status)
		assert.Equal(t, "listing page request failed: 503 Service Unavailable", o.Reason)
	})

	t.Run("empty body", func(t *testing.T) {
		p := &fakePortal{}
		r := newTestResolver(t, p)

		o := r.Resolve(context.Background(), Query{CompanyID: "2330", Year: "2024", Type: Annual})

		assert.Equal(t, StatusFailure, o.Status)
		assert.Equal(t, "listing page request failed: empty body", o.Reason)
	})

	t.Run("transport", func(t *testing.T) {
		server := httptest.NewServer(http.NotFoundHandler())
		origin := server.URL
		server.Close()

		opts := mopshttp.DefaultOptions()
		opts.RequestsPerSecond = 0
		r, err := NewResolver(mopshttp.NewClient(opts), Options{Origin: origin})
		require.NoError(t, err)

		o := r.Resolve(context.Background(), Query{CompanyID: "2330", Year: "2024", Type: Annual})

		assert.Equal(t, StatusFailure, o.Status)
		assert.Contains(t, o.Reason, "network or parse error: ")
	})
}

func TestResolvePostFailure(t *testing.T) {
	tests := []struct {
		name     string
		postBody string
		postCode int
		want     string
	}{
		{name: "bad gateway", postCode: http.StatusBadGateway, want: "POST request failed: 502 Bad Gateway"},
		{name: "empty body", postBody: "", want: "POST request failed: empty body"},
		{name: "truncated marker", postBody: "%PD", want: "network or parse error: unexpected EOF"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &fakePortal{listing: listingWithFilings, postBody: tt.postBody, postCode: tt.postCode}
			r := newTestResolver(t, p)

			o := r.Resolve(context.Background(), Query{CompanyID: "2330", Year: "2024", Season: 1, Type: Financial})

			assert.Equal(t, StatusFailure, o.Status)
			assert.Equal(t, tt.want, o.Reason)
			assert.Nil(t, o.Body)
			assert.Equal(t, 2, p.requestCount())
		})
	}
}

func TestNewResolverRejectsRelativeOrigin(t *testing.T) {
	_, err := NewResolver(nil, Options{Origin: "doc.twse.com.tw"})
	assert.Error(t, err)
}

func TestReportTypeText(t *testing.T) {
	for _, rt := range []ReportType{Financial, Annual} {
		b, err := rt.MarshalText()
		require.NoError(t, err)

		var back ReportType
		require.NoError(t, back.UnmarshalText(b))
		assert.Equal(t, rt, back)
	}

	_, err := ParseReportType("quarterly")
	assert.Error(t, err)
}
