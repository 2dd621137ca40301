package client

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"refhub/finder/internal/domain"

	"github.com/PuerkitoBio/goquery"
	log "github.com/sirupsen/logrus"
)

const (
	cardSelector      = "div.col-sm-6.col-lg-3"
	tagSelector       = "span.badge.bg-blue.bg-opacity-10.text-blue"
	featuredSelector  = "div.ribbon"
	captionSelector   = "span"
	captionMarker     = "Page"
	publishedOnPrefix = "Published on:"
)

// "Page 3 of 12" as rendered under the result grid.
var paginationRegex = regexp.MustCompile(`Page (\d+) of (\d+)`)

// cardField maps one optional element of a listing card onto a Book field.
// A selector that matches nothing leaves the field untouched.
type cardField struct {
	name     string
	selector string
	extract  func(*goquery.Selection) string
	assign   func(*domain.Book, string)
}

func text(s *goquery.Selection) string {
	return strings.TrimSpace(s.Text())
}

func attr(name string) func(*goquery.Selection) string {
	return func(s *goquery.Selection) string {
		return strings.TrimSpace(s.AttrOr(name, ""))
	}
}

func withoutPrefix(prefix string) func(*goquery.Selection) string {
	return func(s *goquery.Selection) string {
		return strings.TrimSpace(strings.ReplaceAll(s.Text(), prefix, ""))
	}
}

var cardFields = []cardField{
	{"title", "img.card-img-top", attr("alt"), func(b *domain.Book, v string) { b.Title = v }},
	{"imageUrl", "img.card-img-top", attr("src"), func(b *domain.Book, v string) { b.ImageURL = v }},
	{"year", "span.badge.text-bg-primary.float-start", withoutPrefix(publishedOnPrefix), func(b *domain.Book, v string) { b.Year = v }},
	{"description", "p.card-text", text, func(b *domain.Book, v string) { b.Description = v }},
	{"skillLevel", "span.badge.bg-purple", text, func(b *domain.Book, v string) { b.SkillLevel = v }},
	{"category", "span.badge.bg-blue:not(.bg-opacity-10)", text, func(b *domain.Book, v string) { b.Category = v }},
	{"language", "span.badge.bg-primary-subtle", text, func(b *domain.Book, v string) { b.Language = v }},
	{"url", "a.text-decoration-none", attr("href"), func(b *domain.Book, v string) { b.URL = v }},
}

type searchParser struct {
	fields []cardField
}

func newSearchParser() *searchParser {
	return &searchParser{
		fields: cardFields,
	}
}

// Parse extracts the listing cards and the pagination state from a search
// page. Missing elements never fail the parse; only a document that cannot be
// read at all returns an error.
func (p *searchParser) Parse(html string, requestedPage int) ([]domain.Book, domain.Pagination, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, domain.Pagination{}, fmt.Errorf("failed to parse HTML: %w", err)
	}

	books := p.extractBooks(doc)
	pagination := p.extractPagination(doc, requestedPage)

	log.Debugf("Parsed page %d of %d with %d books", pagination.CurrentPage, pagination.TotalPages, len(books))
	return books, pagination, nil
}

func (p *searchParser) extractBooks(doc *goquery.Document) []domain.Book {
	books := make([]domain.Book, 0)

	doc.Find(cardSelector).Each(func(i int, card *goquery.Selection) {
		books = append(books, p.parseCard(card))
	})

	return books
}

func (p *searchParser) parseCard(card *goquery.Selection) domain.Book {
	book := domain.Book{
		Tags: make([]string, 0),
	}

	for _, field := range p.fields {
		node := card.Find(field.selector).First()
		if node.Length() == 0 {
			continue
		}
		field.assign(&book, field.extract(node))
	}

	card.Find(tagSelector).Each(func(i int, tag *goquery.Selection) {
		book.Tags = append(book.Tags, text(tag))
	})

	book.IsFeatured = card.Find(featuredSelector).Length() > 0

	return book
}

func (p *searchParser) extractPagination(doc *goquery.Document, requestedPage int) domain.Pagination {
	// The marker match is case-sensitive.
	caption := doc.Find(captionSelector).FilterFunction(func(_ int, s *goquery.Selection) bool {
		return strings.Contains(s.Text(), captionMarker)
	}).First()
	if caption.Length() == 0 {
		return domain.NewPagination(requestedPage, 1)
	}

	matches := paginationRegex.FindStringSubmatch(caption.Text())
	if len(matches) < 3 {
		log.Debugf("Pagination caption %q did not match, assuming single page", text(caption))
		return domain.NewPagination(requestedPage, 1)
	}

	currentPage, err := strconv.Atoi(matches[1])
	if err != nil || currentPage < 1 {
		return domain.NewPagination(requestedPage, 1)
	}
	totalPages, err := strconv.Atoi(matches[2])
	if err != nil || totalPages < 1 {
		return domain.NewPagination(requestedPage, 1)
	}

	return domain.NewPagination(currentPage, totalPages)
}
