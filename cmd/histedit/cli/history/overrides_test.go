package history_test

import (
	"testing"

	"github.com/entireio/histedit/cmd/histedit/cli/history"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOverrides_Validate(t *testing.T) {
	t.Parallel()

	negative := int64(-1)
	farEast := 900
	farWest := -721
	ok := 330

	tests := []struct {
		name      string
		overrides history.Overrides
		wantField string
	}{
		{name: "empty is valid", overrides: history.Overrides{}},
		{name: "valid identity", overrides: history.Overrides{
			AuthorName:   strPtr("Alice Example"),
			AuthorEmail:  strPtr("alice@example.com"),
			AuthorOffset: &ok,
		}},
		{name: "message is free text", overrides: history.Overrides{Message: strPtr("<anything>\n\nat all")}},
		{name: "empty name", overrides: history.Overrides{AuthorName: strPtr("")}, wantField: "author_name"},
		{name: "name with bracket", overrides: history.Overrides{CommitterName: strPtr("Bob >")}, wantField: "committer_name"},
		{name: "bad email", overrides: history.Overrides{AuthorEmail: strPtr("alice")}, wantField: "author_email"},
		{name: "negative time", overrides: history.Overrides{CommitterTime: &negative}, wantField: "committer_date"},
		{name: "offset too far east", overrides: history.Overrides{AuthorOffset: &farEast}, wantField: "author_offset"},
		{name: "offset too far west", overrides: history.Overrides{CommitterOffset: &farWest}, wantField: "committer_offset"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.overrides.Validate()
			if tt.wantField == "" {
				require.NoError(t, err)
				return
			}
			var sigErr *history.InvalidSignatureError
			require.ErrorAs(t, err, &sigErr)
			assert.Equal(t, tt.wantField, sigErr.Field)
			assert.NotEmpty(t, sigErr.Reason)
		})
	}
}

func TestOverrides_Apply(t *testing.T) {
	t.Parallel()

	orig := &history.Commit{
		Author:    history.Signature{Name: "A", Email: "a@example.com", When: 100, OffsetMinutes: 60},
		Committer: history.Signature{Name: "C", Email: "c@example.com", When: 200, OffsetMinutes: -120},
		Message:   "original",
	}

	when := int64(500)
	author, committer, message := history.Overrides{
		AuthorName:    strPtr("New"),
		CommitterTime: &when,
	}.Apply(orig)

	assert.Equal(t, history.Signature{Name: "New", Email: "a@example.com", When: 100, OffsetMinutes: 60}, author)
	assert.Equal(t, history.Signature{Name: "C", Email: "c@example.com", When: 500, OffsetMinutes: -120}, committer)
	assert.Equal(t, "original", message)

	// The original commit is never modified.
	assert.Equal(t, "A", orig.Author.Name)
}

func TestOverrides_IsEmpty(t *testing.T) {
	t.Parallel()

	assert.True(t, history.Overrides{}.IsEmpty())
	assert.False(t, history.Overrides{Message: strPtr("")}.IsEmpty())
}
