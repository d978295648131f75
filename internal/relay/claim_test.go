package relay

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAttemptClaimSequential(t *testing.T) {
	t.Parallel()

	original := "<b>‼ Комплекс ‼</b>\nМосква"

	first := AttemptClaim(original, 42, "Иван")
	require.True(t, first.Claimed)
	assert.Equal(t, original+"\n\n<b>Забрал:</b> <a href=\"tg://user?id=42\">Иван</a>", first.NewText)
	assert.Equal(t, 1, strings.Count(first.NewText, ClaimMarker))

	second := AttemptClaim(first.NewText, 7, "Петр")
	assert.False(t, second.Claimed)
	assert.Empty(t, second.NewText)
}

func TestAttemptClaimMarkers(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		text string
		want bool
	}{
		{name: "current marker", text: "заказ\n\n<b>Забрал:</b> кто-то", want: false},
		{name: "legacy marker", text: "заказ\n\n<b>Взял:</b> кто-то", want: false},
		{name: "plain marker", text: "заказ Взял: кто-то", want: false},
		{name: "unmarked", text: "заказ", want: true},
		{name: "empty", text: "", want: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, AttemptClaim(tt.text, 1, "x").Claimed)
			assert.Equal(t, !tt.want, HasClaimMarker(tt.text))
		})
	}
}

func TestAttemptClaimSanitizesName(t *testing.T) {
	t.Parallel()

	out := AttemptClaim("заказ", 42, "A<b>")
	require.True(t, out.Claimed)
	assert.True(t, strings.HasSuffix(out.NewText, `<a href="tg://user?id=42">Ab</a>`))

	out = AttemptClaim("заказ", 42, "")
	assert.True(t, strings.HasSuffix(out.NewText, `<a href="tg://user?id=42">специалист</a>`))
}

func TestClaimToken(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "take:907351", ClaimToken("907351"))

	id, ok := ParseClaimToken("take:907351")
	assert.True(t, ok)
	assert.Equal(t, "907351", id)

	id, ok = ParseClaimToken("take:a:b")
	assert.True(t, ok)
	assert.Equal(t, "a:b", id)

	_, ok = ParseClaimToken("noop")
	assert.False(t, ok)
}
