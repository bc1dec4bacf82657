package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractLinks(t *testing.T) {
	page := `<html><body>
		<p>The <a href="/wiki/Emu">emu</a> is endemic to
		<a href="/wiki/Australia">Australia</a>.</p>
		<a href="/wiki/Australia">again</a>
		<a href="/wiki/Apollo_program#Legacy">section link</a>
		<a href="/wiki/Tito_Jackson" title="Tito Jackson">Tito</a>
		<a href="/wiki/Category:Birds">category</a>
		<a href="/wiki/File:Emu.jpg">file</a>
		<a href="/wiki/Help:Contents">help</a>
		<a href="https://example.com/wiki/External">external</a>
		<a href="/w/index.php?title=Edit">edit</a>
		<a name="anchor-without-href">nothing</a>
	</body></html>`

	links := extractLinks(page)

	assert.Equal(t, []string{"Apollo program", "Australia", "Emu", "Tito Jackson"}, links.Titles())
}

func TestExtractLinksDecodesTitles(t *testing.T) {
	page := `<a href="/wiki/Guns_N%27_Roses">band</a>
		<a href="/wiki/AC%2FDC">another band</a>`

	links := extractLinks(page)

	assert.True(t, links.Contains("Guns N' Roses"))
	assert.True(t, links.Contains("AC/DC"))
}

func TestExtractLinksEmptyPage(t *testing.T) {
	assert.Equal(t, 0, extractLinks("").Len())
	assert.Equal(t, 0, extractLinks("<html><body>no links</body></html>").Len())
}
