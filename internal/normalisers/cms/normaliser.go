package cms

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/custodia-labs/portfolio-rag/internal/core/domain"
	"github.com/custodia-labs/portfolio-rag/internal/core/ports/driven"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// Normaliser converts CMS documents to canonical text.
// It is stateless and safe for concurrent use.
type Normaliser struct{}

// New creates a new CMS normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// Classify reports whether doc has a normalisation case.
// Returns *domain.UnsupportedDocumentTypeError for unknown types.
func Classify(doc domain.SourceDocument) error {
	if !doc.Type.IsValid() {
		return &domain.UnsupportedDocumentTypeError{Type: string(doc.Type)}
	}
	return nil
}

// Normalise renders doc as canonical text with its content hash.
// Unsupported types and documents without indexable text return nil, nil.
func (n *Normaliser) Normalise(doc domain.SourceDocument) (*domain.NormalizedDocument, error) {
	if doc.ID == "" {
		return nil, fmt.Errorf("%w: document has no id", domain.ErrInvalidInput)
	}

	f := fields(doc.Fields)
	var b builder
	switch doc.Type {
	case domain.SourceTypeProfile:
		b.profile(decodeProfile(f))
	case domain.SourceTypeProject:
		b.project(decodeProject(f))
	case domain.SourceTypeAIProject:
		b.aiProject(decodeAIProject(f))
	case domain.SourceTypeAIShowcase:
		b.aiShowcase(decodeAIShowcase(f))
	default:
		return nil, nil
	}

	if !b.hasContent {
		return nil, nil
	}

	text := b.sb.String()
	return &domain.NormalizedDocument{
		SourceID:      doc.ID,
		SourceType:    doc.Type,
		Title:         b.title,
		CanonicalText: text,
		ContentHash:   Hash(text),
		Spans:         b.spans,
	}, nil
}

// Hash returns the hex SHA-256 of text.
func Hash(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// builder accumulates labelled sections separated by blank lines.
type builder struct {
	sb    strings.Builder
	spans []domain.FieldSpan
	title string

	// hasContent is false until a non-empty section has been written.
	hasContent bool
}

func (b *builder) section(path, label, value string) {
	if value == "" {
		return
	}
	if b.sb.Len() > 0 {
		b.sb.WriteString("\n\n")
	}
	start := b.sb.Len()
	b.sb.WriteString(label)
	b.sb.WriteString(": ")
	b.sb.WriteString(value)
	b.spans = append(b.spans, domain.FieldSpan{Path: path, Start: start, End: b.sb.Len()})
	b.hasContent = true
}

func (b *builder) list(path, label string, items []string) {
	b.section(path, label, strings.Join(items, ", "))
}

func (b *builder) profile(p Profile) {
	b.title = p.Name
	b.section("name", "Name", p.Name)
	b.section("headline", "Headline", p.Headline)
	b.section("location", "Location", p.Location)
	b.section("bio", "About", p.Bio)
	b.list("skills", "Skills", p.Skills)
	for i, e := range p.Experience {
		b.section(fmt.Sprintf("experience[%d]", i), "Experience", e.line())
	}
}

func (e Experience) line() string {
	head := e.Role
	if e.Company != "" {
		if head != "" {
			head += " at "
		}
		head += e.Company
	}
	if e.Period != "" {
		if head != "" {
			head += " "
		}
		head += "(" + e.Period + ")"
	}
	switch {
	case head == "":
		return e.Summary
	case e.Summary == "":
		return head
	default:
		return head + ". " + e.Summary
	}
}

func (b *builder) project(p Project) {
	b.title = p.Title
	b.section("title", "Project", p.Title)
	b.section("summary", "Summary", p.Summary)
	b.section("role", "Role", p.Role)
	b.section("description", "Description", p.Description)
	b.list("techStack", "Tech stack", p.TechStack)
	b.list("highlights", "Highlights", p.Highlights)
	b.section("url", "Link", p.URL)
}

func (b *builder) aiProject(p AIProject) {
	b.title = p.Title
	b.section("title", "AI project", p.Title)
	b.section("summary", "Summary", p.Summary)
	b.section("description", "Description", p.Description)
	b.list("models", "Models", p.Models)
	b.list("techniques", "Techniques", p.Techniques)
	b.list("outcomes", "Outcomes", p.Outcomes)
}

func (b *builder) aiShowcase(s AIShowcase) {
	b.title = s.Title
	b.section("title", "AI showcase", s.Title)
	b.section("summary", "Summary", s.Summary)
	b.section("description", "Description", s.Description)
	b.list("tags", "Tags", s.Tags)
	b.section("demoUrl", "Demo", s.DemoURL)
}
