package wound

import (
	"regexp"
	"strings"
)

var dataURLPrefix = regexp.MustCompile(`^data:image/([a-z]+);base64,`)

// Image is a submitted picture split into its image subtype and base64
// payload. Input without a data URL prefix is treated as JPEG.
type Image struct {
	Subtype string
	Data    string
}

// ParseImage accepts a base64 data URL or bare base64 text.
func ParseImage(raw string) Image {
	raw = strings.TrimSpace(raw)
	if m := dataURLPrefix.FindStringSubmatch(raw); m != nil {
		return Image{Subtype: m[1], Data: raw[len(m[0]):]}
	}
	return Image{Subtype: "jpeg", Data: raw}
}

// DataURL re-wraps the payload as data:image/<subtype>;base64,<data>.
func (i Image) DataURL() string {
	return "data:image/" + i.Subtype + ";base64," + i.Data
}

// ContentType returns the MIME type.
func (i Image) ContentType() string {
	return "image/" + i.Subtype
}

// Extension returns a file extension without the dot.
func (i Image) Extension() string {
	if i.Subtype == "jpeg" {
		return "jpg"
	}
	return i.Subtype
}
