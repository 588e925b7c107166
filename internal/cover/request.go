package cover

import "strings"

// RatioAll fans a single request out across every ratio in BatchRatios.
const RatioAll = "all"

// BatchRatios is the fixed fan-out order for "all". Artifacts come back
// in this order.
var BatchRatios = []string{"16:9", "9:16", "3:4", "4:3", "1:1"}

type Request struct {
	ImageData []byte
	ImageMIME string

	// Title may contain explicit line breaks; they are meaningful to the
	// rendered cover and must survive all the way to the provider.
	Title string

	ClothingStyle   string
	BackgroundScene string
	Modification    string

	// AspectRatio is one of BatchRatios, RatioAll, or empty (16:9).
	AspectRatio string
}

// Validate is checked before any network call is made.
func (r Request) Validate() error {
	if len(r.ImageData) == 0 {
		return E(KindValidation, "reference image is required")
	}
	if strings.TrimSpace(r.Title) == "" {
		return E(KindValidation, "title is required")
	}
	return nil
}

// Ratios returns the aspect ratios this request fans out to.
func (r Request) Ratios() []string {
	ratio := strings.TrimSpace(r.AspectRatio)
	switch ratio {
	case "":
		return []string{"16:9"}
	case RatioAll:
		return append([]string(nil), BatchRatios...)
	default:
		return []string{ratio}
	}
}

// SizeFor maps an aspect ratio to exact pixel dimensions. The queue
// provider rejects size/ratio pairs that do not multiply out exactly,
// so these must stay exact, not approximate.
func SizeFor(ratio string) (width, height int) {
	switch ratio {
	case "16:9":
		return 1280, 720
	case "9:16":
		return 720, 1280
	case "3:4":
		return 768, 1024
	case "4:3":
		return 1024, 768
	default:
		return 1024, 1024
	}
}
