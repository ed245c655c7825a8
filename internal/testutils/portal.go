// Package testutils provides shared test infrastructure: a fake disclosure
// portal, a minimal PDF generator and, for integration tests, a MinIO
// container.
package testutils

import (
	"fmt"
	"html"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/YenHsinCHEN/MopsDownloader/internal/mops"
)

// NoDataPage is the listing page the portal returns when nothing matches.
const NoDataPage = `<html><body><center><h3>查無所需資料</h3></center></body></html>`

// Filing is a document published on the fake portal.
type Filing struct {
	CompanyID string
	Year      string // Gregorian
	Season    int    // financial only
	Type      mops.ReportType
	Content   []byte

	// Intermediate makes the download POST return an HTML page linking to
	// the PDF instead of the PDF itself.
	Intermediate bool
}

// ServerName is the file name the portal lists for f.
func (f Filing) ServerName() string {
	if f.Type == mops.Financial {
		return fmt.Sprintf("%sQ%d_%s_AI1.pdf", f.Year, f.Season, f.CompanyID)
	}
	return fmt.Sprintf("%s_%s_20240604F04.pdf", f.Year, f.CompanyID)
}

// Portal is an httptest server that imitates the listing, download and
// static PDF endpoints.
type Portal struct {
	*httptest.Server

	mu       sync.Mutex
	filings  []Filing
	requests []string
}

// StartPortal starts a portal serving filings. It is closed when the test
// ends.
func StartPortal(t testing.TB, filings ...Filing) *Portal {
	t.Helper()

	p := &Portal{filings: filings}
	p.Server = httptest.NewServer(http.HandlerFunc(p.serve))
	t.Cleanup(p.Close)
	return p
}

// Requests returns "METHOD path" for every request received so far.
func (p *Portal) Requests() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.requests...)
}

func (p *Portal) serve(w http.ResponseWriter, r *http.Request) {
	p.mu.Lock()
	p.requests = append(p.requests, r.Method+" "+r.URL.Path)
	p.mu.Unlock()

	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	switch {
	case r.URL.Path == "/server-java/t57sb01" && r.Method == http.MethodGet:
		p.serveListing(w, r)
	case r.URL.Path == "/server-java/t57sb01" && r.Method == http.MethodPost:
		p.serveDownload(w, r)
	case strings.HasPrefix(r.URL.Path, "/pdf/"):
		f, ok := p.byName(strings.TrimPrefix(r.URL.Path, "/pdf/"))
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/pdf")
		w.Write(f.Content)
	default:
		http.NotFound(w, r)
	}
}

func (p *Portal) serveListing(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	roc, err := strconv.Atoi(r.Form.Get("year"))
	if err != nil {
		fmt.Fprint(w, NoDataPage)
		return
	}
	year := strconv.Itoa(roc + 1911)

	typ := mops.Annual
	if r.Form.Get("mtype") == "A" {
		typ = mops.Financial
	}
	season, _ := strconv.Atoi(r.Form.Get("seamon"))

	var b strings.Builder
	for _, f := range p.filings {
		if f.CompanyID != r.Form.Get("co_id") || f.Year != year || f.Type != typ {
			continue
		}
		if typ == mops.Financial && season > 0 && f.Season != season {
			continue
		}
		kind := "F"
		if typ == mops.Financial {
			kind = "A"
		}
		href := fmt.Sprintf(`javascript:readfile2("%s","%s","%s")`, kind, f.CompanyID, f.ServerName())
		fmt.Fprintf(&b, "<tr><td><a href=\"%s\">%s</a></td></tr>\n", html.EscapeString(href), f.ServerName())
	}

	if b.Len() == 0 {
		fmt.Fprint(w, NoDataPage)
		return
	}
	fmt.Fprintf(w, "<html><body><table>\n%s</table></body></html>", b.String())
}

func (p *Portal) serveDownload(w http.ResponseWriter, r *http.Request) {
	f, ok := p.byName(r.Form.Get("filename"))
	if !ok || r.Form.Get("step") != "9" {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, "<html><body>檔案不存在</body></html>")
		return
	}

	if f.Intermediate {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprintf(w, `<html><body><a href="/pdf/%s">%s</a></body></html>`, f.ServerName(), f.ServerName())
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Write(f.Content)
}

func (p *Portal) byName(name string) (Filing, bool) {
	for _, f := range p.filings {
		if f.ServerName() == name {
			return f, true
		}
	}
	return Filing{}, false
}
