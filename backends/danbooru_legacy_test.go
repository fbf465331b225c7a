package backends

import (
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const legacyPostTemplate = `  <post>
    <id>%s</id>
    <file_url>/data/%s.jpg</file_url>
    <width>1200</width>
    <height>900</height>
    <preview_url>//cdn.example.com/preview/%s.jpg</preview_url>
    <preview_width>150</preview_width>
    <preview_height>112</preview_height>
    <sample_url>https://cdn.example.com/sample/%s.jpg</sample_url>
    <sample_width>850</sample_width>
    <sample_height>637</sample_height>
    <tags>cat cute  outdoors</tags>
    <parent_id></parent_id>
    <rating>s</rating>
    <score>12</score>
    <md5>d41d8cd98f00b204e9800998ecf8427e</md5>
    <created_at>2014-05-13 16:53:20</created_at>
  </post>
`

func legacyFixture(ids ...string) string {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n")
	fmt.Fprintf(&b, "<posts count=\"%d\" offset=\"0\">\n", len(ids))
	for _, id := range ids {
		fmt.Fprintf(&b, legacyPostTemplate, id, id, id, id)
	}
	b.WriteString("</posts>\n")
	return b.String()
}

func legacyRequest(tags string, page int) pageRequest {
	return pageRequest{
		settings: Settings{APIType: APIDanbooruLegacy, Name: "legacy", Endpoint: "https://booru.example.com"},
		tags:     tags,
		page:     page,
		limit:    DefaultLimit,
	}
}

func TestBuildLegacySearchURL(t *testing.T) {
	tests := []struct {
		name string
		tags string
		page int
		want string
	}{
		{"empty query", "", 0, "https://booru.example.com/post/index.xml?tags=&page=1&limit=100"},
		{"single tag", "cat", 0, "https://booru.example.com/post/index.xml?tags=cat&page=1&limit=100"},
		{"multiple tags", "cat  cute", 2, "https://booru.example.com/post/index.xml?tags=cat+cute&page=3&limit=100"},
		{"special characters", "rating:safe score:>10", 0, "https://booru.example.com/post/index.xml?tags=rating%3Asafe+score%3A%3E10&page=1&limit=100"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := buildLegacySearchURL(legacyRequest(tt.tags, tt.page))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)

			again, err := buildLegacySearchURL(legacyRequest(tt.tags, tt.page))
			require.NoError(t, err)
			assert.Equal(t, got, again)

			_, err = url.Parse(got)
			assert.NoError(t, err)
		})
	}
}

func TestBuildLegacySearchURL_LastPage(t *testing.T) {
	got, err := buildLegacySearchURL(legacyRequest("cat", math.MaxInt))
	require.NoError(t, err)

	u, err := url.Parse(got)
	require.NoError(t, err)
	assert.Equal(t, strconv.FormatUint(uint64(math.MaxInt)+1, 10), u.Query().Get("page"))
}

func TestBuildLegacySearchURL_Credentials(t *testing.T) {
	req := legacyRequest("cat", 0)
	req.settings.Username = "alice"
	req.settings.Password = "s3cret"

	got, err := buildLegacySearchURL(req)
	require.NoError(t, err)

	u, err := url.Parse(got)
	require.NoError(t, err)
	assert.Equal(t, "alice", u.User.Username())
	pass, ok := u.User.Password()
	assert.True(t, ok)
	assert.Equal(t, "s3cret", pass)

	// Username alone is not enough to authenticate.
	req.settings.Password = ""
	got, err = buildLegacySearchURL(req)
	require.NoError(t, err)
	assert.NotContains(t, got, "alice")
}

func TestLegacyParse_TwoPosts(t *testing.T) {
	d := danbooruLegacyDialect()
	req := legacyRequest("cat cute", 0)

	images, err := d.parse(d, req, []byte(legacyFixture("101", "102")))
	require.NoError(t, err)
	require.Len(t, images, 2)

	img := images[0]
	assert.Equal(t, "101", img.ID)
	assert.Equal(t, "https://booru.example.com/data/101.jpg", img.FileURL)
	assert.Equal(t, "https://cdn.example.com/preview/101.jpg", img.PreviewURL)
	assert.Equal(t, "https://cdn.example.com/sample/101.jpg", img.SampleURL)
	assert.Equal(t, 1200, img.Width)
	assert.Equal(t, 900, img.Height)
	assert.Equal(t, 150, img.PreviewWidth)
	assert.Equal(t, 112, img.PreviewHeight)
	assert.Equal(t, 850, img.SampleWidth)
	assert.Equal(t, 637, img.SampleHeight)
	assert.Equal(t, []Tag{{Name: "cat"}, {Name: "cute"}, {Name: "outdoors"}}, img.Tags)
	assert.Nil(t, img.ParentID)
	assert.Equal(t, RatingSafe, img.SafeSearchRating)
	assert.Equal(t, 12, img.Score)
	assert.Equal(t, "d41d8cd98f00b204e9800998ecf8427e", img.MD5)
	assert.True(t, time.Date(2014, 5, 13, 16, 53, 20, 0, time.UTC).Equal(img.CreatedAt))
	assert.Equal(t, "https://booru.example.com/post/show/101", img.WebURL)
	assert.False(t, img.DegradedFidelity)

	for i, img := range images {
		assert.Equal(t, 0, img.SearchPage)
		assert.Equal(t, i, img.SearchPagePosition)
	}
	assert.Equal(t, "102", images[1].ID)
}

func TestLegacyParse_PositionsMatchDocumentOrder(t *testing.T) {
	d := danbooruLegacyDialect()
	for _, n := range []int{0, 1, 5, 37} {
		ids := make([]string, n)
		for i := range ids {
			ids[i] = fmt.Sprintf("%d", 1000-i)
		}
		images, err := d.parse(d, legacyRequest("", 4), []byte(legacyFixture(ids...)))
		require.NoError(t, err)
		require.Len(t, images, n)
		for i, img := range images {
			assert.Equal(t, ids[i], img.ID)
			assert.Equal(t, i, img.SearchPagePosition)
			assert.Equal(t, 4, img.SearchPage)
		}
	}
}

func TestLegacyParse_AttributeStylePosts(t *testing.T) {
	body := `<?xml version="1.0" encoding="UTF-8"?>
<posts count="1" offset="0">
  <post id="55" file_url="https://img.example.com/55.png" width="10" height="20"
        preview_url="/p/55.jpg" preview_width="5" preview_height="6"
        sample_url="/s/55.jpg" sample_width="7" sample_height="8"
        tags="one two" parent_id="54" rating="q" score="-3" created_at="1400000000"/>
</posts>`
	d := danbooruLegacyDialect()

	images, err := d.parse(d, legacyRequest("", 0), []byte(body))
	require.NoError(t, err)
	require.Len(t, images, 1)

	img := images[0]
	assert.Equal(t, "55", img.ID)
	assert.Equal(t, "https://booru.example.com/p/55.jpg", img.PreviewURL)
	require.NotNil(t, img.ParentID)
	assert.Equal(t, "54", *img.ParentID)
	assert.Equal(t, RatingQuestionable, img.SafeSearchRating)
	assert.Equal(t, -3, img.Score)
	assert.Equal(t, PlaceholderMD5, img.MD5)
	assert.True(t, time.Unix(1400000000, 0).Equal(img.CreatedAt))
}

func TestLegacyParse_MissingFieldFailsWholePage(t *testing.T) {
	body := legacyFixture("1", "2", "3")
	// Drop the score of the second post only.
	idx := strings.Index(body, "<id>2</id>")
	require.Positive(t, idx)
	body = body[:idx] + strings.Replace(body[idx:], "<score>12</score>", "", 1)

	d := danbooruLegacyDialect()
	images, err := d.parse(d, legacyRequest("", 0), []byte(body))
	require.Error(t, err)
	assert.Nil(t, images)
	assert.Contains(t, err.Error(), "post 1")
	assert.Contains(t, err.Error(), "score")
}

func TestLegacyParse_Malformed(t *testing.T) {
	d := danbooruLegacyDialect()
	tests := []struct {
		name string
		body string
	}{
		{"not xml", "not xml"},
		{"empty", ""},
		{"truncated", `<posts><post><id>1</id>`},
		{"bad integer", strings.Replace(legacyFixture("1"), "<width>1200</width>", "<width>wide</width>", 1)},
		{"bad date", strings.Replace(legacyFixture("1"), "2014-05-13 16:53:20", "last tuesday", 1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := d.parse(d, legacyRequest("", 0), []byte(tt.body))
			assert.Error(t, err)
		})
	}
}

func TestNormalizeURL(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"", ""},
		{"https://other.example.com/a.jpg", "https://other.example.com/a.jpg"},
		{"/data/a.jpg", "https://booru.example.com/data/a.jpg"},
		{"//cdn.example.com/a.jpg", "https://cdn.example.com/a.jpg"},
	}
	for _, tt := range tests {
		got, err := NormalizeURL("https://booru.example.com", tt.raw)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "NormalizeURL(%q)", tt.raw)
	}
}
