package check

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/pagesmith/internal/foundation/errors"
	"git.home.luguber.info/inful/pagesmith/internal/testutil"
)

func TestCheck(t *testing.T) {
	out := t.TempDir()
	testutil.WriteTree(t, out, map[string]string{
		"index.html": `<html><body>
<a href="/about/">about</a>
<a href="about/#team">team</a>
<a href="/about/#missing">missing anchor</a>
<a href="/nope/">broken</a>
<a href="#top">self</a>
<a href="https://example.com/x">external</a>
<a href="https://mysite.test/about/">own host</a>
<a href="mailto:me@example.com">mail</a>
<img src="/images/logo.png">
<link rel="stylesheet" href="/bundle/css-123.css">
<h1 id="top">Top</h1>
</body></html>`,
		"about/index.html":       `<h2 id="team">Team</h2><a href="../index.html#top">home</a><a name="legacy"></a><a href="#legacy">x</a>`,
		"images/logo.png":        "png",
		"bundle/css-123.css":     "a{}",
		".pagesmith-report.json": "{}",
	})

	res, err := (&Checker{BaseURL: "https://mysite.test/"}).Check(context.Background(), out)
	require.NoError(t, err)

	assert.Equal(t, 2, res.Pages)
	assert.Equal(t, 12, res.Links)
	assert.Equal(t, 1, res.External)
	assert.False(t, res.OK())
	assert.ElementsMatch(t, []Broken{
		{Page: "index.html", URL: "/about/#missing", Reason: "missing anchor #missing"},
		{Page: "index.html", URL: "/nope/", Reason: "target not found"},
	}, res.Broken)
}

func TestCheck_CleanSite(t *testing.T) {
	out := t.TempDir()
	testutil.WriteTree(t, out, map[string]string{
		"index.html":      `<a href="/docs">docs</a>`,
		"docs/index.html": `<a href="/">home</a>`,
	})
	res, err := (&Checker{}).Check(context.Background(), out)
	require.NoError(t, err)
	assert.True(t, res.OK())
}

func TestCheck_MissingOutput(t *testing.T) {
	_, err := (&Checker{}).Check(context.Background(), t.TempDir()+"/missing")
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryNotFound))
}
