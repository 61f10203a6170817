// Package document models the policy-page snapshots the audit archives:
// markdown content with YAML front matter describing where and when the
// page was captured.
package document

import (
	"regexp"
	"strings"

	"github.com/pkg/errors"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
	"gopkg.in/yaml.v3"
)

type Kind = string

const (
	KindPrivacyPolicy Kind = "privacy-policy"
	KindPolicySubPage Kind = "policy-subpage"
)

type Metadata struct {
	Title string `yaml:"title"`
	// Site is the audited website this snapshot belongs to.
	Site string `yaml:"site"`
	// Scenario is the consent scenario active when the page was captured.
	Scenario string `yaml:"scenario,omitempty"`
	// Source is the URL the snapshot was taken from.
	Source        string   `yaml:"source"`
	Kind          Kind     `yaml:"kind"`
	RetrievedTime string   `yaml:"retrievedTime"`
	PrivacyLinks  []string `yaml:"privacyLinks,omitempty"`
}

type Document struct {
	// The markdown content of the captured page.
	Content []byte
	// Metadata about the capture.
	Metadata Metadata
}

func (d *Document) HasTitle() bool {
	return d.Metadata.Title != ""
}

// FindTitle returns the document title, deriving it from the first level-1
// markdown heading when the metadata does not carry one.
func (d *Document) FindTitle() string {
	if d.Metadata.Title != "" {
		return d.Metadata.Title
	}

	md := goldmark.New(
		goldmark.WithParserOptions(
			parser.WithAutoHeadingID(),
		),
	)

	reader := text.NewReader(d.Content)
	doc := md.Parser().Parse(reader)

	var title string
	ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if heading, ok := n.(*ast.Heading); ok && entering && heading.Level == 1 {
			var titleBuilder strings.Builder
			for child := heading.FirstChild(); child != nil; child = child.NextSibling() {
				if text, ok := child.(*ast.Text); ok {
					titleBuilder.Write(text.Segment.Value(d.Content))
				}
			}
			title = titleBuilder.String()
			return ast.WalkStop, nil
		}
		return ast.WalkContinue, nil
	})

	d.Metadata.Title = title

	return title
}

// ToMarkdown renders the snapshot as markdown with YAML front matter and
// returns the file name to store it under.
func (d *Document) ToMarkdown() (string, string, error) {
	d.FindTitle()

	var builder strings.Builder
	frontMatter, err := yaml.Marshal(d.Metadata)
	if err != nil {
		return "", "", errors.Wrap(err, "failed to marshal metadata to YAML")
	}

	builder.WriteString("---\n")
	builder.Write(frontMatter)
	builder.WriteString("---\n")
	builder.Write(d.Content)

	return d.FileName(), builder.String(), nil
}

// FileName derives a stable, filesystem-safe name from the site, scenario
// and kind, so snapshots of the same page overwrite rather than pile up.
func (d *Document) FileName() string {
	parts := []string{d.Metadata.Site}
	if d.Metadata.Scenario != "" {
		parts = append(parts, d.Metadata.Scenario)
	}
	if d.Metadata.Kind != "" {
		parts = append(parts, d.Metadata.Kind)
	}
	return sanitizeFileName(strings.Join(parts, "-")) + ".md"
}

func sanitizeFileName(name string) string {
	re := regexp.MustCompile(`[\/\\:\*\?"<>\|\p{C}\s]+`)

	name = re.ReplaceAllString(name, "-")
	return strings.Trim(name, " .-")
}
