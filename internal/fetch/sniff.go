package fetch

import (
	"fmt"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"reelpress/internal/services"
)

// ValidateVideoFile sniffs the file at path and confirms it carries a video
// container. Returns the detected MIME type. Matching walks the detection
// hierarchy so subtypes like video/x-matroska pass without enumeration.
func ValidateVideoFile(path string) (string, error) {
	mtype, err := mimetype.DetectFile(path)
	if err != nil {
		return "", services.Wrap(
			services.ErrValidation, "fetch", "sniff source",
			"Could not read staged source for content detection", err)
	}
	for m := mtype; m != nil; m = m.Parent() {
		if strings.HasPrefix(m.String(), "video/") {
			return mtype.String(), nil
		}
	}
	return "", services.Wrap(
		services.ErrValidation, "fetch", "sniff source",
		fmt.Sprintf("Source content type %s is not a video", mtype.String()), nil)
}
