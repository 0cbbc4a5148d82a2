package loader

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeArticleRejectsNonObjects(t *testing.T) {
	inputs := []string{`null`, `"article"`, `42`, `[{"title":"x"}]`, `true`, ``}

	for _, input := range inputs {
		t.Run(input, func(t *testing.T) {
			_, err := DecodeArticle(json.RawMessage(input))
			assert.ErrorIs(t, err, ErrInvalidArticle)
		})
	}
}

func TestDecodeArticleNormalizesNonArrayImages(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"missing", `{"title":"t"}`},
		{"null", `{"images":null}`},
		{"string", `{"images":"https://example.com/a.png"}`},
		{"object", `{"images":{"0":"https://example.com/a.png"}}`},
		{"number", `{"images":3}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			article, err := DecodeArticle(json.RawMessage(tt.input))
			require.NoError(t, err)
			assert.NotNil(t, article.Images)
			assert.Empty(t, article.Images)
			assert.NotNil(t, article.Prompts)
			assert.Empty(t, article.Prompts)
		})
	}
}

func TestDecodeArticleFiltersEntriesPreservingOrder(t *testing.T) {
	raw := `{
		"title": "Cats run for office",
		"images": ["a.png", 1, "", null, "b.png", {"src":"c.png"}, ["d.png"], "c.png"],
		"prompts": [false, "first", "", "second"]
	}`

	article, err := DecodeArticle(json.RawMessage(raw))
	require.NoError(t, err)

	assert.Equal(t, []string{"a.png", "b.png", "c.png"}, article.Images)
	assert.Equal(t, []string{"first", "second"}, article.Prompts)
}

func TestDecodeArticleTextFields(t *testing.T) {
	raw := `{"id":"abc","title":"Headline","summary":"Funny","comic_header":"Meanwhile..."}`

	article, err := DecodeArticle(json.RawMessage(raw))
	require.NoError(t, err)

	assert.Equal(t, "abc", article.ID)
	assert.Equal(t, "Headline", article.Title)
	assert.Equal(t, "Funny", article.Summary)
	assert.Equal(t, "Meanwhile...", article.ComicHeader)
}

func TestDecodeArticleMissingTextRendersEmpty(t *testing.T) {
	article, err := DecodeArticle(json.RawMessage(`{"title":null,"summary":{"x":1}}`))
	require.NoError(t, err)

	assert.Equal(t, "", article.Title)
	assert.Equal(t, "", article.Summary)
	assert.Equal(t, "", article.ComicHeader)
}

func TestDecodeArticleScalarText(t *testing.T) {
	article, err := DecodeArticle(json.RawMessage(`{"title":2024,"summary":true}`))
	require.NoError(t, err)

	assert.Equal(t, "2024", article.Title)
	assert.Equal(t, "true", article.Summary)
}

func TestDecodeArticleDoesNotMutateInput(t *testing.T) {
	raw := json.RawMessage(`{"images":["a.png",""]}`)
	before := string(raw)

	_, err := DecodeArticle(raw)
	require.NoError(t, err)

	assert.Equal(t, before, string(raw))
}

func TestValidateReturnsFilteredCopy(t *testing.T) {
	original := Article{
		Title:   "t",
		Images:  []string{"", "a.png", "", "b.png"},
		Prompts: []string{"p1", ""},
	}

	validated := Validate(original)

	assert.Equal(t, []string{"a.png", "b.png"}, validated.Images)
	assert.Equal(t, []string{"p1"}, validated.Prompts)
	assert.Equal(t, []string{"", "a.png", "", "b.png"}, original.Images)
	assert.Equal(t, "t", validated.Title)
}

func TestValidateNilSlices(t *testing.T) {
	validated := Validate(Article{Title: "no images"})

	assert.NotNil(t, validated.Images)
	assert.Empty(t, validated.Images)
	assert.False(t, validated.HasImages())
}

func TestDuplicateAndEmptyTitlesAccepted(t *testing.T) {
	body := []byte(`{"success":true,"articles":[{"title":"","images":["a"]},{"title":"","images":["b"]}]}`)

	articles, err := decodePage(1, body)
	require.NoError(t, err)
	assert.Len(t, articles, 2)
}
