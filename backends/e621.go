package backends

import (
	"strings"

	"github.com/antchfx/xmlquery"
)

// e621Dialect shares the Danbooru 1.x URL layout and XML reader; it differs
// in date format and in exposing typed tag groups.
func e621Dialect() dialect {
	d := danbooruLegacyDialect()
	d.parse = xmlPostParser(e621Tags)
	d.parseDate = parseISODate
	d.probePath = ""
	return d
}

var e621TagGroups = map[string]TagType{
	"general":   TagGeneral,
	"species":   TagGeneral,
	"meta":      TagGeneral,
	"lore":      TagGeneral,
	"artist":    TagArtist,
	"copyright": TagCopyright,
	"character": TagCharacter,
	"invalid":   TagAmbiguous,
}

// e621Tags reads <tags><artist><tag>name</tag></artist>...</tags> when the
// post carries typed groups, and a plain tag string otherwise.
func e621Tags(r *postReader) []Tag {
	tagsNode := r.node.SelectElement("tags")
	if tagsNode == nil || !hasElementChildren(tagsNode) {
		return plainTags(r)
	}

	var tags []Tag
	for group := tagsNode.FirstChild; group != nil; group = group.NextSibling {
		if group.Type != xmlquery.ElementNode {
			continue
		}
		tagType, ok := e621TagGroups[group.Data]
		if !ok {
			tagType = TagGeneral
		}
		for _, tag := range group.SelectElements("tag") {
			if name := strings.TrimSpace(tag.InnerText()); name != "" {
				tags = append(tags, Tag{Name: name, Type: tagType})
			}
		}
	}
	return tags
}

func hasElementChildren(n *xmlquery.Node) bool {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == xmlquery.ElementNode {
			return true
		}
	}
	return false
}
