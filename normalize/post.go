// Package normalize turns the CMS's loosely shaped post and media payloads
// into models.Post. The CMS may reply with flat entries (v5), with entries
// nested under "attributes" (v4), with single "image" or multiple "images"
// fields, and with media wrapped in {"data": {"attributes": ...}}.
package normalize

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/use-agent/imageboard/models"
)

type object = map[string]any

// Post normalizes one raw post. A {"data": {...}} single-entry envelope is
// unwrapped first. It reports false when the entry has neither a documentId
// nor an id.
func Post(raw json.RawMessage, mediaBase string) (models.Post, bool) {
	v, ok := decode(raw)
	if !ok {
		return models.Post{}, false
	}
	return fromValue(v, mediaBase)
}

// Posts normalizes a list of raw posts, dropping entries that cannot be
// identified.
func Posts(items []json.RawMessage, mediaBase string) []models.Post {
	posts := make([]models.Post, 0, len(items))
	for _, item := range items {
		if p, ok := Post(item, mediaBase); ok {
			posts = append(posts, p)
		}
	}
	return posts
}

// DocumentID extracts data.documentId or data.attributes.documentId from a
// create/update reply.
func DocumentID(raw json.RawMessage) string {
	v, ok := decode(raw)
	if !ok {
		return ""
	}
	data := unwrap(asObject(v))
	if id := str(data["documentId"]); id != "" {
		return id
	}
	return str(asObject(data["attributes"])["documentId"])
}

func fromValue(v any, mediaBase string) (models.Post, bool) {
	data := unwrap(asObject(v))
	if data == nil {
		return models.Post{}, false
	}
	attrs := asObject(data["attributes"])

	documentID := firstString(data["documentId"], attrs["documentId"])
	rawID := data["id"]
	if rawID == nil {
		rawID = attrs["id"]
	}
	legacyRef, legacyID, hasLegacy := identifier(rawID)
	if documentID == "" && legacyRef == "" {
		return models.Post{}, false
	}

	p := models.Post{
		ID:         documentID,
		DocumentID: documentID,
		Title:      firstString(data["title"], attrs["title"]),
		Content:    firstString(data["content"], attrs["content"]),
		Locale:     firstString(data["locale"], attrs["locale"]),
		Slug:       firstString(data["slug"], attrs["slug"]),
		CreatedAt:  firstString(data["createdAt"], attrs["createdAt"]),
		UpdatedAt:  firstString(data["updatedAt"], attrs["updatedAt"]),
	}
	if hasLegacy {
		id := legacyID
		p.LegacyID = &id
	}
	if p.ID == "" {
		p.ID = legacyRef
	}
	p.Images = collectImages(data, attrs, mediaBase)
	return p, true
}

// collectImages gathers every image candidate in priority order, resolves
// URLs and drops duplicates by URL.
func collectImages(data, attrs object, mediaBase string) []models.Image {
	var candidates []any

	// Single image fields.
	attrImage := asObject(attrs["image"])
	candidates = append(candidates,
		data["image"],
		attrs["image"],
		attrImage["data"],
		asObject(attrImage["data"])["attributes"],
	)

	// Flattened images array.
	if list, ok := data["images"].([]any); ok {
		candidates = append(candidates, list...)
	}

	// Nested shape: attributes.images.data[].attributes
	if list, ok := asObject(attrs["images"])["data"].([]any); ok {
		for _, item := range list {
			candidates = append(candidates, asObject(item)["attributes"])
		}
	}

	images := make([]models.Image, 0, len(candidates))
	seen := make(map[string]struct{}, len(candidates))
	for _, c := range candidates {
		img, ok := buildImage(media(c), mediaBase)
		if !ok {
			continue
		}
		if _, dup := seen[img.URL]; dup {
			continue
		}
		seen[img.URL] = struct{}{}
		images = append(images, img)
	}
	return images
}

// media returns the object describing a media entry: the candidate itself if
// it carries a url, else its "attributes" if those carry one.
func media(candidate any) object {
	m := asObject(candidate)
	if m == nil {
		return nil
	}
	if str(m["url"]) != "" {
		return m
	}
	if inner := asObject(m["attributes"]); str(inner["url"]) != "" {
		// v4 keeps the id next to attributes, not inside them.
		if _, has := inner["id"]; !has {
			if id, ok := m["id"]; ok {
				merged := make(object, len(inner)+1)
				for k, v := range inner {
					merged[k] = v
				}
				merged["id"] = id
				return merged
			}
		}
		return inner
	}
	return nil
}

func buildImage(m object, mediaBase string) (models.Image, bool) {
	if m == nil {
		return models.Image{}, false
	}
	url := ResolveURL(str(m["url"]), mediaBase)
	if url == "" {
		return models.Image{}, false
	}
	img := models.Image{
		URL:    url,
		Alt:    firstString(m["alternativeText"], m["caption"]),
		Width:  intOrZero(m["width"]),
		Height: intOrZero(m["height"]),
	}
	if id, ok := integer(m["id"]); ok {
		img.ID = &id
	}
	if formats := asObject(m["formats"]); len(formats) > 0 {
		img.Formats = make(map[string]models.ImageFormat, len(formats))
		for name, f := range formats {
			fo := asObject(f)
			u := ResolveURL(str(fo["url"]), mediaBase)
			if u == "" {
				continue
			}
			img.Formats[name] = models.ImageFormat{
				URL:    u,
				Width:  intOrZero(fo["width"]),
				Height: intOrZero(fo["height"]),
			}
		}
	}
	return img, true
}

// ResolveURL keeps absolute URLs and prefixes relative ones with base.
func ResolveURL(raw, base string) string {
	if raw == "" {
		return ""
	}
	if strings.HasPrefix(raw, "http") {
		return raw
	}
	return strings.TrimRight(base, "/") + raw
}

// --- loose JSON helpers ---

func decode(raw json.RawMessage) (any, bool) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, false
	}
	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, false
	}
	return v, true
}

// unwrap returns o["data"] when it is an object, else o.
func unwrap(o object) object {
	if inner, ok := o["data"].(map[string]any); ok {
		return inner
	}
	return o
}

func asObject(v any) object {
	o, _ := v.(map[string]any)
	return o
}

func str(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case json.Number:
		return s.String()
	}
	return ""
}

func firstString(values ...any) string {
	for _, v := range values {
		if s := str(v); s != "" {
			return s
		}
	}
	return ""
}

// identifier reads a legacy id given as a number or a string. ref is the
// id as used in URLs; n is set when the id is numeric.
func identifier(v any) (ref string, n int64, numeric bool) {
	if i, ok := integer(v); ok {
		return strconv.FormatInt(i, 10), i, true
	}
	s, ok := v.(string)
	if !ok {
		return "", 0, false
	}
	s = strings.TrimSpace(s)
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return s, i, true
	}
	return s, 0, false
}

func integer(v any) (int64, bool) {
	switch n := v.(type) {
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return i, true
		}
		if f, err := n.Float64(); err == nil {
			return int64(f), true
		}
	case float64:
		return int64(n), true
	}
	return 0, false
}

func intOrZero(v any) int {
	i, _ := integer(v)
	return int(i)
}
