package normalize

import "github.com/use-agent/imageboard/models"

// Rendition preferences, largest first.
var (
	heroFormats  = []string{"xlarge", "large", "medium"}
	slideFormats = []string{"large", "medium"}
)

// HeroURL picks the best URL for a full-width hero image.
func HeroURL(img *models.Image) string {
	return pick(img, heroFormats)
}

// SlideURL picks the URL used by the home page slider.
func SlideURL(img *models.Image) string {
	return pick(img, slideFormats)
}

func pick(img *models.Image, prefs []string) string {
	if img == nil {
		return ""
	}
	for _, name := range prefs {
		if f, ok := img.Formats[name]; ok && f.URL != "" {
			return f.URL
		}
	}
	return img.URL
}

// Slides builds home page slides from posts. Posts without a documentId or
// without any image are skipped.
func Slides(posts []models.Post, locale string) []models.Slide {
	slides := make([]models.Slide, 0, len(posts))
	for i := range posts {
		p := &posts[i]
		cover := p.Cover()
		if cover == nil || p.DocumentID == "" {
			continue
		}
		url := SlideURL(cover)
		if url == "" {
			continue
		}
		slides = append(slides, models.Slide{
			ID:       p.DocumentID,
			Title:    p.Title,
			ImageURL: url,
			Alt:      cover.Alt,
			Href:     "/" + locale + "/posts/" + p.DocumentID,
		})
	}
	return slides
}
