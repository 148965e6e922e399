package feed

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/lysyi3m/board-feeds/app/cfg"
	"github.com/lysyi3m/board-feeds/app/upstream"
)

const (
	xmlDeclaration    = `<?xml version="1.0" encoding="UTF-8"?>`
	stylesheetPI      = `<?xml-stylesheet type="text/css" href="/xml-styles.css"?>`
	rssOpen           = `<rss xmlns:atom="http://www.w3.org/2005/Atom" version="2.0">`
	sitemapIndexOpen  = `<sitemapindex xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">`
	sitemapChangeFreq = "weekly"
	sitemapDateLayout = "2006-01-02"
	rfc822GMT         = "Mon, 02 Jan 2006 15:04:05 GMT"
)

var ErrRender = errors.New("failed to render document")

// epoch is the pubDate used for items without a creation time.
var epoch = time.Unix(0, 0).UTC()

type Renderer struct {
	site cfg.Site
	now  func() time.Time
}

func NewRenderer(site cfg.Site, now func() time.Time) *Renderer {
	if now == nil {
		now = time.Now
	}
	return &Renderer{site: site, now: now}
}

type item struct {
	title       string
	description string
	link        string
	pubDate     time.Time
}

// BoardFeed renders a board's threads as an RSS channel, one item per thread
// in the order given.
func (r *Renderer) BoardFeed(result *upstream.BoardThreads, boardSlug string) (string, error) {
	if result == nil {
		return "", fmt.Errorf("%w: board %s: no data", ErrRender, boardSlug)
	}

	items := make([]item, 0, len(result.Threads))
	for _, thread := range result.Threads {
		items = append(items, item{
			title:       thread.Message,
			description: "Reply count: " + strconv.Itoa(thread.RepliesCount),
			link:        r.threadURL(boardSlug, thread.ID),
			pubDate:     pubDate(thread.CreatedAt),
		})
	}

	title := fmt.Sprintf("/%s/ - %s", result.Slug, result.Name)
	return r.renderChannel(title, r.boardURL(boardSlug), items), nil
}

// ThreadFeed renders a thread's replies newest first.
func (r *Renderer) ThreadFeed(result *upstream.ThreadReplies, boardSlug string, threadID int) (string, error) {
	if result == nil {
		return "", fmt.Errorf("%w: thread %s/%d: no data", ErrRender, boardSlug, threadID)
	}

	threadURL := r.threadURL(boardSlug, threadID)

	items := make([]item, 0, len(result.Replies))
	for i := len(result.Replies) - 1; i >= 0; i-- {
		reply := result.Replies[i]
		items = append(items, item{
			title:   reply.Message,
			link:    threadURL + "#" + strconv.Itoa(reply.ID),
			pubDate: pubDate(reply.CreatedAt),
		})
	}

	return r.renderChannel(result.Title+"/", threadURL, items), nil
}

// Sitemap renders a sitemap index with one entry per board. All entries share
// the local calendar date at render time.
func (r *Renderer) Sitemap(boards []upstream.Board) (string, error) {
	if boards == nil {
		return "", fmt.Errorf("%w: sitemap: no boards", ErrRender)
	}

	lastMod := r.now().In(time.Local).Format(sitemapDateLayout)

	var buf bytes.Buffer

	buf.WriteString(xmlDeclaration)
	buf.WriteString("\n")
	buf.WriteString(sitemapIndexOpen)
	buf.WriteString("\n")

	for _, board := range boards {
		buf.WriteString("  <sitemap>\n")
		writeElement(&buf, "loc", r.boardURL(board.Slug), 4)
		writeElement(&buf, "lastmod", lastMod, 4)
		writeElement(&buf, "changefreq", sitemapChangeFreq, 4)
		buf.WriteString("  </sitemap>\n")
	}

	buf.WriteString("</sitemapindex>")

	return buf.String(), nil
}

func (r *Renderer) renderChannel(title, link string, items []item) string {
	var buf bytes.Buffer

	buf.WriteString(xmlDeclaration)
	buf.WriteString("\n")
	buf.WriteString(stylesheetPI)
	buf.WriteString("\n")
	buf.WriteString(rssOpen)
	buf.WriteString("\n  <channel>\n")

	writeElement(&buf, "title", title, 4)
	writeElement(&buf, "description", r.site.Description, 4)
	writeElement(&buf, "link", link, 4)
	writeElement(&buf, "lastBuildDate", formatDate(r.now()), 4)
	if r.site.Language != "" {
		writeElement(&buf, "language", r.site.Language, 4)
	}

	for _, it := range items {
		buf.WriteString("    <item>\n")
		writeElement(&buf, "title", it.title, 6)
		if it.description != "" {
			writeElement(&buf, "description", it.description, 6)
		}
		writeElement(&buf, "link", it.link, 6)
		writeElement(&buf, "pubDate", formatDate(it.pubDate), 6)
		buf.WriteString("    </item>\n")
	}

	buf.WriteString("  </channel>\n</rss>")

	return buf.String()
}

func (r *Renderer) boardURL(boardSlug string) string {
	return r.site.BaseURL + "/boards/" + boardSlug
}

func (r *Renderer) threadURL(boardSlug string, threadID int) string {
	return r.boardURL(boardSlug) + "/" + strconv.Itoa(threadID)
}

func pubDate(ts upstream.Timestamp) time.Time {
	if !ts.Valid {
		return epoch
	}
	return ts.Time
}

func formatDate(t time.Time) string {
	return t.UTC().Format(rfc822GMT)
}
