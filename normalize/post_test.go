package normalize

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/use-agent/imageboard/models"
)

const base = "http://cms.local/"

func TestPost_FlatShape(t *testing.T) {
	raw := json.RawMessage(`{
		"id": 7,
		"documentId": "abc123",
		"title": "Sunset",
		"content": "Over the bay",
		"locale": "en",
		"createdAt": "2024-05-01T10:00:00.000Z",
		"images": [
			{"id": 11, "url": "/uploads/a.jpg", "alternativeText": "bay",
			 "formats": {"large": {"url": "/uploads/large_a.jpg", "width": 1000}}},
			{"id": 12, "url": "https://cdn.example.com/b.jpg", "caption": "second"}
		]
	}`)

	p, ok := Post(raw, base)
	require.True(t, ok)
	assert.Equal(t, "abc123", p.ID)
	assert.Equal(t, "abc123", p.DocumentID)
	require.NotNil(t, p.LegacyID)
	assert.Equal(t, int64(7), *p.LegacyID)
	assert.Equal(t, "Sunset", p.Title)
	assert.Equal(t, "Over the bay", p.Content)
	assert.Equal(t, "en", p.Locale)

	require.Len(t, p.Images, 2)
	assert.Equal(t, "http://cms.local/uploads/a.jpg", p.Images[0].URL)
	assert.Equal(t, "bay", p.Images[0].Alt)
	require.NotNil(t, p.Images[0].ID)
	assert.Equal(t, int64(11), *p.Images[0].ID)
	assert.Equal(t, "http://cms.local/uploads/large_a.jpg", p.Images[0].Formats["large"].URL)
	assert.Equal(t, 1000, p.Images[0].Formats["large"].Width)
	assert.Equal(t, "https://cdn.example.com/b.jpg", p.Images[1].URL)
	assert.Equal(t, "second", p.Images[1].Alt)
}

func TestPost_NestedAttributesShape(t *testing.T) {
	raw := json.RawMessage(`{
		"id": 3,
		"attributes": {
			"title": "Nested",
			"content": "body",
			"locale": "ko",
			"image": {"data": {"id": 40, "attributes": {"url": "/uploads/cover.png", "caption": "cover"}}},
			"images": {"data": [
				{"id": 41, "attributes": {"url": "/uploads/one.png"}},
				{"id": 42, "attributes": {"url": "/uploads/cover.png"}}
			]}
		}
	}`)

	p, ok := Post(raw, base)
	require.True(t, ok)
	assert.Equal(t, "3", p.ID, "legacy id is used when documentId is missing")
	assert.Empty(t, p.DocumentID)
	assert.Equal(t, "Nested", p.Title)
	assert.Equal(t, "ko", p.Locale)

	require.Len(t, p.Images, 2, "duplicate URLs keep the first")
	assert.Equal(t, "http://cms.local/uploads/cover.png", p.Images[0].URL)
	assert.Equal(t, "cover", p.Images[0].Alt)
	require.NotNil(t, p.Images[0].ID)
	assert.Equal(t, int64(40), *p.Images[0].ID)
	assert.Equal(t, "http://cms.local/uploads/one.png", p.Images[1].URL)
}

func TestPost_DataEnvelope(t *testing.T) {
	raw := json.RawMessage(`{"data": {"documentId": "d1", "title": "Wrapped",
		"image": {"url": "/x.jpg"}}, "meta": {}}`)

	p, ok := Post(raw, "http://cms.local")
	require.True(t, ok)
	assert.Equal(t, "d1", p.ID)
	assert.Equal(t, "Wrapped", p.Title)
	require.Len(t, p.Images, 1)
	assert.Equal(t, "http://cms.local/x.jpg", p.Images[0].URL)
}

func TestPost_AttributesDocumentID(t *testing.T) {
	raw := json.RawMessage(`{"attributes": {"documentId": "inner", "title": "T"}}`)
	p, ok := Post(raw, base)
	require.True(t, ok)
	assert.Equal(t, "inner", p.ID)
	assert.Nil(t, p.LegacyID)
	assert.NotNil(t, p.Images)
	assert.Empty(t, p.Images)
}

func TestPost_Invalid(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"empty", ``},
		{"null", `null`},
		{"array", `[1,2]`},
		{"no identifiers", `{"title": "orphan"}`},
		{"broken json", `{"id":`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := Post(json.RawMessage(tt.raw), base)
			assert.False(t, ok)
		})
	}
}

func TestPost_StringLegacyID(t *testing.T) {
	p, ok := Post(json.RawMessage(`{"id":"5","title":"numeric string"}`), base)
	require.True(t, ok)
	assert.Equal(t, "5", p.ID)
	require.NotNil(t, p.LegacyID)
	assert.Equal(t, int64(5), *p.LegacyID)

	p, ok = Post(json.RawMessage(`{"attributes":{"id":"slug-7","title":"opaque"}}`), base)
	require.True(t, ok)
	assert.Equal(t, "slug-7", p.ID)
	assert.Nil(t, p.LegacyID)

	_, ok = Post(json.RawMessage(`{"id":"  ","title":"blank"}`), base)
	assert.False(t, ok)
}

func TestPost_DropsImagesWithoutURL(t *testing.T) {
	raw := json.RawMessage(`{"documentId": "d", "images": [{"id": 1}, {"url": ""}, null, {"url": "/ok.jpg"}]}`)
	p, ok := Post(raw, base)
	require.True(t, ok)
	require.Len(t, p.Images, 1)
	assert.Equal(t, "http://cms.local/ok.jpg", p.Images[0].URL)
}

func TestPosts_SkipsInvalid(t *testing.T) {
	items := []json.RawMessage{
		json.RawMessage(`{"documentId": "a"}`),
		json.RawMessage(`{"title": "nope"}`),
		json.RawMessage(`{"id": "9"}`),
		json.RawMessage(`{"id": 9}`),
	}
	posts := Posts(items, base)
	require.Len(t, posts, 2)
	assert.Equal(t, "a", posts[0].ID)
	assert.Equal(t, "9", posts[1].ID)
}

func TestDocumentID(t *testing.T) {
	assert.Equal(t, "flat", DocumentID(json.RawMessage(`{"data": {"documentId": "flat"}}`)))
	assert.Equal(t, "nested", DocumentID(json.RawMessage(`{"data": {"id": 1, "attributes": {"documentId": "nested"}}}`)))
	assert.Equal(t, "bare", DocumentID(json.RawMessage(`{"documentId": "bare"}`)))
	assert.Empty(t, DocumentID(json.RawMessage(`{"data": {"id": 1}}`)))
	assert.Empty(t, DocumentID(nil))
}

func TestResolveURL(t *testing.T) {
	assert.Equal(t, "", ResolveURL("", base))
	assert.Equal(t, "https://a/b.png", ResolveURL("https://a/b.png", base))
	assert.Equal(t, "http://cms.local/u/b.png", ResolveURL("/u/b.png", base))
	assert.Equal(t, "http://cms.local/u/b.png", ResolveURL("/u/b.png", "http://cms.local"))
}

func TestHeroAndSlideURL(t *testing.T) {
	img := &models.Image{
		URL: "orig",
		Formats: map[string]models.ImageFormat{
			"xlarge": {URL: "xl"},
			"large":  {URL: "l"},
			"medium": {URL: "m"},
		},
	}
	assert.Equal(t, "xl", HeroURL(img))
	assert.Equal(t, "l", SlideURL(img))

	delete(img.Formats, "xlarge")
	delete(img.Formats, "large")
	assert.Equal(t, "m", HeroURL(img))
	assert.Equal(t, "m", SlideURL(img))

	img.Formats = nil
	assert.Equal(t, "orig", HeroURL(img))
	assert.Equal(t, "", HeroURL(nil))
}

func TestSlides(t *testing.T) {
	legacy := int64(5)
	posts := []models.Post{
		{ID: "a", DocumentID: "a", Title: "A", Images: []models.Image{{URL: "u1", Alt: "alt"}, {URL: "u2"}}},
		{ID: "b", DocumentID: "b", Title: "no image"},
		{ID: "5", LegacyID: &legacy, Title: "legacy", Images: []models.Image{{URL: "u3"}}},
	}

	slides := Slides(posts, "ja")
	require.Len(t, slides, 1)
	assert.Equal(t, models.Slide{ID: "a", Title: "A", ImageURL: "u1", Alt: "alt", Href: "/ja/posts/a"}, slides[0])
}
