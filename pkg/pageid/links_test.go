package pageid

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractLinks(t *testing.T) {
	body := `
See [the post](./20240713-my-post.md) and [again](./20240713-my-post.md).
A [note](<../notes/with space.md>) and [titled](/talks/keynote "Keynote").
Skip [external](https://example.com), [plain](http://example.com),
[proto](//cdn.example.com/x), [mail](mailto:me@example.com), [phone](tel:123),
[anchor](#heading), [image](./photo.JPG), [doc](../files/cv.pdf?dl=1),
[tag](/tags/go) and [nested tag](../blog/tags/go).
Empty [link]( ) is ignored.
`
	got := ExtractLinks(body)
	assert.Equal(t, []string{
		"./20240713-my-post.md",
		"../notes/with space.md",
		"/talks/keynote",
	}, got)
}

func TestExtractLinksNone(t *testing.T) {
	assert.Empty(t, ExtractLinks("no links here, just [brackets] and (parens)"))
}

func TestPageLinksDeduplicatesAfterNormalization(t *testing.T) {
	body := `[a](./20240101-x.md) [b](x.md) [c](/blog/x/) [d](../notes/y.md) [e](../unknown/z.md)`
	got := Default().PageLinks(body, "blog")
	assert.Equal(t, []string{"/blog/x", "/notes/y"}, got)
}
