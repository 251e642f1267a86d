package crawler

import (
	"bytes"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/alvmarrod/product-weaver/internal/storage"
)

// Extract returns the product record for a fetched detail page. The name
// is the text of the first h1; a missing or blank heading is recorded as
// an error rather than treated as a fault.
func Extract(body []byte, pageURL string) storage.ProductRecord {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return storage.FailedRecord(pageURL, NoProductNameError)
	}

	name := strings.TrimSpace(doc.Find("h1").First().Text())
	if name == "" {
		return storage.FailedRecord(pageURL, NoProductNameError)
	}

	return storage.NamedRecord(pageURL, name)
}
