package fingerprint

import (
	"strings"

	"golang.org/x/net/html"
)

// shingleSize is the number of consecutive tags hashed together.
const shingleSize = 3

// DOM fingerprints the tag structure of an HTML document, ignoring text and
// attributes. Two renders of the same template stay close even when their
// copy differs.
func DOM(doc string) uint64 {
	tags := openTags(doc)
	if len(tags) < shingleSize {
		return simhash(tags)
	}

	shingles := make([]string, 0, len(tags)-shingleSize+1)
	for i := 0; i+shingleSize <= len(tags); i++ {
		shingles = append(shingles, strings.Join(tags[i:i+shingleSize], ">"))
	}
	return simhash(shingles)
}

func openTags(doc string) []string {
	z := html.NewTokenizer(strings.NewReader(doc))
	var tags []string
	for {
		switch z.Next() {
		case html.ErrorToken:
			return tags
		case html.StartTagToken, html.SelfClosingTagToken:
			name, _ := z.TagName()
			tags = append(tags, string(name))
		}
	}
}
