package browser

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"github.com/antchfx/htmlquery"
	"github.com/microcosm-cc/bluemonday"

	apperrors "github.com/GriffinCanCode/AgentOS/sandbox/internal/shared/errors"
)

// noise is stripped before text extraction
const noise = "script, style, noscript, template"

var sanitizer = bluemonday.UGCPolicy()

// Extract pulls text, links and HTML out of a rendered document. A CSS
// selector or an XPath expression narrows extraction to the first match.
func Extract(html string, req ContentRequest) (*ContentResult, error) {
	sel, err := narrow(html, req)
	if err != nil {
		return nil, err
	}
	sel.Find(noise).Remove()

	out, err := goquery.OuterHtml(sel)
	if err != nil {
		return nil, apperrors.Internal(err, "failed to render html")
	}
	if req.Sanitize {
		out = sanitizer.Sanitize(out)
	}

	return &ContentResult{
		Text:  normalizeWhitespace(sel.Text()),
		HTML:  out,
		Links: links(sel),
	}, nil
}

func narrow(html string, req ContentRequest) (*goquery.Selection, error) {
	if req.XPath != "" {
		root, err := htmlquery.Parse(strings.NewReader(html))
		if err != nil {
			return nil, apperrors.Internal(err, "failed to parse page html")
		}
		node, err := htmlquery.Query(root, req.XPath)
		if err != nil {
			return nil, apperrors.Validation("invalid xpath %q: %v", req.XPath, err)
		}
		if node == nil {
			return nil, apperrors.NotFound("no element matches xpath %q", req.XPath)
		}
		return goquery.NewDocumentFromNode(node).Selection, nil
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, apperrors.Internal(err, "failed to parse page html")
	}

	if req.Selector != "" {
		matcher, err := CheckSelector(req.Selector)
		if err != nil {
			return nil, err
		}
		sel := doc.FindMatcher(matcher).First()
		if sel.Length() == 0 {
			return nil, apperrors.NotFound("no element matches selector %q", req.Selector)
		}
		return sel, nil
	}

	if body := doc.Find("body"); body.Length() > 0 {
		return body, nil
	}
	return doc.Selection, nil
}

// CheckSelector compiles a CSS selector, rejecting malformed ones
func CheckSelector(selector string) (cascadia.Selector, error) {
	matcher, err := cascadia.Compile(selector)
	if err != nil {
		return nil, apperrors.Validation("invalid selector %q: %v", selector, err)
	}
	return matcher, nil
}

// links collects anchors inside sel (and sel itself), deduplicated by href
func links(sel *goquery.Selection) []Link {
	seen := make(map[string]bool)
	out := []Link{}
	sel.Find("a[href]").AddSelection(sel.Filter("a[href]")).Each(func(_ int, s *goquery.Selection) {
		href := strings.TrimSpace(s.AttrOr("href", ""))
		if href == "" || href == "#" || seen[href] {
			return
		}
		seen[href] = true
		out = append(out, Link{Text: normalizeWhitespace(s.Text()), Href: href})
	})
	return out
}

func normalizeWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
