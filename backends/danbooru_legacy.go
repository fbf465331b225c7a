package backends

import (
	"bytes"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/antchfx/xmlquery"
)

func danbooruLegacyDialect() dialect {
	return dialect{
		buildURL:     buildLegacySearchURL,
		parse:        xmlPostParser(plainTags),
		parseDate:    parseLegacyDate,
		webURL:       postShowURL,
		defaultQuery: "rating:safe",
		auth:         AuthOptional,
		probePath:    "post/index.xml",
	}
}

// buildLegacySearchURL builds <endpoint>/post/index.xml?tags=..&page=..&limit=..
// The board numbers pages from 1. Credentials travel as URL userinfo so the
// transport sends them as HTTP basic auth.
func buildLegacySearchURL(req pageRequest) (string, error) {
	u, err := url.Parse(req.settings.Endpoint + "/post/index.xml")
	if err != nil {
		return "", fmt.Errorf("invalid endpoint: %v", err)
	}
	if req.settings.Username != "" && req.settings.Password != "" {
		u.User = url.UserPassword(req.settings.Username, req.settings.Password)
	}
	u.RawQuery = "tags=" + url.QueryEscape(normalizeQuery(req.tags)) +
		"&page=" + strconv.FormatUint(uint64(req.page)+1, 10) +
		"&limit=" + strconv.Itoa(req.limit)
	return u.String(), nil
}

// tagReader extracts the tag list from a <post> element.
type tagReader func(r *postReader) []Tag

func plainTags(r *postReader) []Tag {
	return TagsFromString(r.text("tags"), TagGeneral)
}

// xmlPostParser reads every <post> of a posts.xml document. Any post missing
// a required field fails the whole page.
func xmlPostParser(readTags tagReader) func(d dialect, req pageRequest, body []byte) ([]Image, error) {
	return func(d dialect, req pageRequest, body []byte) ([]Image, error) {
		doc, err := xmlquery.Parse(bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("failed to parse XML: %v", err)
		}
		if !hasRootElement(doc) {
			return nil, fmt.Errorf("failed to parse XML: no root element")
		}

		posts := xmlquery.Find(doc, "//post")
		images := make([]Image, 0, len(posts))
		for i, post := range posts {
			img, err := readPost(d, req, post, readTags)
			if err != nil {
				return nil, fmt.Errorf("post %d: %w", i, err)
			}
			img.SearchPage = req.page
			img.SearchPagePosition = i
			images = append(images, img)
		}
		return images, nil
	}
}

func readPost(d dialect, req pageRequest, post *xmlquery.Node, readTags tagReader) (Image, error) {
	r := &postReader{node: post}
	endpoint := req.settings.Endpoint

	img := Image{
		ID:            r.text("id"),
		FileURL:       r.url(endpoint, "file_url"),
		Width:         r.int("width"),
		Height:        r.int("height"),
		PreviewURL:    r.url(endpoint, "preview_url"),
		PreviewWidth:  r.int("preview_width"),
		PreviewHeight: r.int("preview_height"),
		SampleURL:     r.url(endpoint, "sample_url"),
		SampleWidth:   r.int("sample_width"),
		SampleHeight:  r.int("sample_height"),
		Score:         r.int("score"),
	}
	img.Tags = readTags(r)
	img.SafeSearchRating = ParseRating(r.text("rating"))
	created := r.text("created_at")

	if parent, ok := r.optional("parent_id"); ok && parent != "" {
		img.ParentID = &parent
	}
	img.MD5 = PlaceholderMD5
	if md5, ok := r.optional("md5"); ok && md5 != "" {
		img.MD5 = md5
	}

	if r.err != nil {
		return Image{}, r.err
	}

	createdAt, err := d.parseDate(created)
	if err != nil {
		return Image{}, fmt.Errorf("created_at: %v", err)
	}
	img.CreatedAt = createdAt
	img.WebURL = d.webURL(req.settings, img.ID)
	return img, nil
}

// postReader reads fields from a <post> element, remembering the first
// failure so callers can check once after reading every field.
type postReader struct {
	node *xmlquery.Node
	err  error
}

// optional returns the text of a child element, falling back to an
// attribute of the same name for attribute-style feeds.
func (r *postReader) optional(name string) (string, bool) {
	if child := r.node.SelectElement(name); child != nil {
		return strings.TrimSpace(child.InnerText()), true
	}
	for _, attr := range r.node.Attr {
		if attr.Name.Local == name {
			return strings.TrimSpace(attr.Value), true
		}
	}
	return "", false
}

func (r *postReader) text(name string) string {
	v, ok := r.optional(name)
	if !ok && r.err == nil {
		r.err = fmt.Errorf("missing required field %q", name)
	}
	return v
}

func (r *postReader) int(name string) int {
	v := r.text(name)
	if r.err != nil {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		r.err = fmt.Errorf("field %q: %v", name, err)
		return 0
	}
	return n
}

func (r *postReader) url(endpoint, name string) string {
	v := r.text(name)
	if r.err != nil {
		return ""
	}
	abs, err := NormalizeURL(endpoint, v)
	if err != nil {
		r.err = fmt.Errorf("field %q: %v", name, err)
		return ""
	}
	return abs
}

func hasRootElement(doc *xmlquery.Node) bool {
	for n := doc.FirstChild; n != nil; n = n.NextSibling {
		if n.Type == xmlquery.ElementNode {
			return true
		}
	}
	return false
}
