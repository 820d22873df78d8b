package render

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// cleanBody strips active content from a message's HTML body before it is
// embedded in the printable document. Scripts and frames stall the headless
// page's settle wait; <base> rewrites relative URLs of the host document.
// Styles and images are kept, they are what the email looks like.
func cleanBody(body string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		// unparseable markup is the browser's problem, pass it through
		return body
	}

	doc.Find("script, iframe, frame, object, embed, base").Remove()

	// meta refresh would navigate away mid-print
	doc.Find("meta[http-equiv]").Each(func(_ int, s *goquery.Selection) {
		if v, _ := s.Attr("http-equiv"); strings.EqualFold(v, "refresh") {
			s.Remove()
		}
	})

	out, err := doc.Html()
	if err != nil {
		return body
	}
	return out
}
