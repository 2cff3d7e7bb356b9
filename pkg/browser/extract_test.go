package browser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPageText_StripsNonContent(t *testing.T) {
	raw := `<html><head><title>Sign in</title><style>body{color:red}</style></head>
	<body>
		<script>var tracking = true;</script>
		<h1>Welcome back</h1>
		<p>Enter your   credentials below.</p>
		<noscript>Enable JavaScript</noscript>
	</body></html>`

	text, err := pageText(raw)
	require.NoError(t, err)

	assert.Contains(t, text, "Welcome back")
	assert.Contains(t, text, "Enter your credentials below.")
	assert.NotContains(t, text, "tracking")
	assert.NotContains(t, text, "color:red")
	assert.NotContains(t, text, "Enable JavaScript")
	assert.NotContains(t, text, "Sign in", "head content is not visible text")
}

func TestPageText_BlockBoundariesBecomeNewlines(t *testing.T) {
	text, err := pageText(`<body><p>first</p><p>second</p><span>same </span><span>line</span></body>`)
	require.NoError(t, err)

	assert.Contains(t, text, "first\n")
	assert.Contains(t, text, "second")
	assert.Contains(t, text, "same line")
}

func TestPageText_CollapsesBlankRuns(t *testing.T) {
	text, err := pageText(`<body><div></div><div></div><div>content</div><div></div></body>`)
	require.NoError(t, err)

	assert.NotContains(t, text, "\n\n\n")
	assert.Contains(t, text, "content")
}

func TestPageTitle(t *testing.T) {
	title, err := pageTitle(`<html><head><title>  Dashboard  </title></head><body></body></html>`)
	require.NoError(t, err)
	assert.Equal(t, "Dashboard", title)

	title, err = pageTitle(`<html><body>no title</body></html>`)
	require.NoError(t, err)
	assert.Empty(t, title)
}
