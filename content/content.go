// Package content turns captured page HTML into archivable markdown
// snapshots.
package content

import (
	"bytes"
	"time"

	md "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/pkg/errors"

	"github.com/consentio/gdprscan/document"
	"github.com/consentio/gdprscan/htmlutil"
)

// Snapshot converts a captured HTML page into a markdown document carrying
// the given capture metadata. The page's privacy-related links are
// extracted into the front matter, and the title falls back to the site
// name when the page has no level-1 heading.
func Snapshot(pageHTML []byte, meta document.Metadata) (*document.Document, error) {
	if meta.RetrievedTime == "" {
		meta.RetrievedTime = time.Now().Format(time.RFC3339)
	}

	links, err := htmlutil.PrivacyLinks(string(pageHTML))
	if err != nil {
		return nil, err
	}
	meta.PrivacyLinks = links

	r := bytes.NewReader(pageHTML)
	mdBody, err := md.ConvertReader(r, converter.WithDomain(meta.Site))
	if err != nil {
		return nil, errors.Wrap(err, "failed to convert HTML to Markdown")
	}

	doc := &document.Document{
		Content:  mdBody,
		Metadata: meta,
	}

	if doc.FindTitle() == "" {
		doc.Metadata.Title = meta.Site
	}

	return doc, nil
}
