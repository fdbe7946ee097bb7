package transform

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vk_syncer/internal/domain"
	"vk_syncer/internal/source/vk"
)

func TestCleanText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "club mention becomes label",
			in:   "Спасибо [club123|нашему клубу] за сезон",
			want: "Спасибо нашему клубу за сезон",
		},
		{
			name: "id mention becomes label",
			in:   "Поздравляем [id456|Ивана Петрова]!",
			want: "Поздравляем Ивана Петрова!",
		},
		{
			name: "surrounding whitespace trimmed",
			in:   "  текст  \n",
			want: "текст",
		},
		{
			name: "plain text untouched",
			in:   "Обычный пост",
			want: "Обычный пост",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CleanText(tt.in))
		})
	}
}

func TestExtractHashtags(t *testing.T) {
	tags := ExtractHashtags("Итоги тура #результаты #football_2024 и просто текст #Новости")
	assert.Equal(t, []string{"результаты", "football_2024", "Новости"}, tags)

	assert.Empty(t, ExtractHashtags("без хэштегов"))
}

func TestMakeTitle(t *testing.T) {
	t.Run("first line without hashtags", func(t *testing.T) {
		title := MakeTitle("Итоги матча #результаты\nПодробности ниже")
		assert.Equal(t, "Итоги матча", title)
	})

	t.Run("long line truncated at word boundary", func(t *testing.T) {
		long := strings.Repeat("слово ", 40) // ~240 runes
		title := MakeTitle(long)

		assert.True(t, strings.HasSuffix(title, "..."))
		assert.LessOrEqual(t, len([]rune(title)), 153)
		assert.False(t, strings.HasSuffix(strings.TrimSuffix(title, "..."), " "))
	})

	t.Run("hashtag-only text falls back", func(t *testing.T) {
		assert.Equal(t, FallbackTitle, MakeTitle("#один #два #три"))
	})
}

func TestBuildDraft_EmptyText(t *testing.T) {
	_, ok := BuildDraft(vk.Post{ID: 1, Date: 1700000000})
	assert.False(t, ok)
}

func TestBuildDraft_TextFields(t *testing.T) {
	post := vk.Post{
		ID:   1,
		Text: "Заголовок поста\nПервый абзац\nВторой абзац",
		Date: 1700000000,
	}

	draft, ok := BuildDraft(post)
	require.True(t, ok)

	assert.Equal(t, "Заголовок поста", draft.Title)
	assert.Equal(t, "Заголовок поста<br/>Первый абзац<br/>Второй абзац", draft.Content)
	assert.Equal(t, "Заголовок поста\nПервый абзац\nВторой абзац", draft.Excerpt)
}

func TestBuildDraft_ExcerptTruncated(t *testing.T) {
	post := vk.Post{ID: 1, Text: strings.Repeat("ж", 400), Date: 1700000000}

	draft, ok := BuildDraft(post)
	require.True(t, ok)

	assert.Equal(t, 300, len([]rune(draft.Excerpt)))
}

func TestBuildDraft_PostDateMoscowWallClock(t *testing.T) {
	// 2023-11-14 22:13:20 UTC = 2023-11-15 01:13:20 in Moscow.
	post := vk.Post{ID: 1, Text: "t", Date: 1700000000}

	draft, ok := BuildDraft(post)
	require.True(t, ok)

	want := domain.Naive(time.Unix(1700000000, 0).In(domain.MoscowTZ))
	assert.Equal(t, want, draft.PostDate)
	assert.Equal(t, 15, draft.PostDate.Day())
	assert.Equal(t, 1, draft.PostDate.Hour())
}

func TestBuildDraft_PhotoPolicy(t *testing.T) {
	post := vk.Post{
		ID:   1,
		Text: "фотоотчёт",
		Date: 1700000000,
		Attachments: []vk.Attachment{
			{Type: "photo", Photo: &vk.Photo{Sizes: []vk.PhotoSize{
				{URL: "https://img/small1", Width: 130, Height: 87},
				{URL: "https://img/big1", Width: 1280, Height: 853},
				{URL: "https://img/mid1", Width: 604, Height: 403},
			}}},
			{Type: "doc"}, // unsupported kind, ignored
			{Type: "photo", Photo: &vk.Photo{Sizes: []vk.PhotoSize{
				{URL: "https://img/big2", Width: 1000, Height: 700},
				{URL: "https://img/small2", Width: 100, Height: 70},
			}}},
		},
	}

	draft, ok := BuildDraft(post)
	require.True(t, ok)

	require.NotNil(t, draft.FeaturedImage)
	assert.Equal(t, "https://img/big1", *draft.FeaturedImage)
	assert.Equal(t, []string{"https://img/big2"}, draft.Gallery)
	assert.Nil(t, draft.VideoURL)
}

func TestBuildDraft_VideoPlayerURL(t *testing.T) {
	post := vk.Post{
		ID:   1,
		Text: "видео",
		Date: 1700000000,
		Attachments: []vk.Attachment{
			{Type: "video", Video: &vk.Video{
				ID:      777,
				OwnerID: -123,
				Player:  "https://vk.com/player/777",
			}},
		},
	}

	draft, ok := BuildDraft(post)
	require.True(t, ok)
	require.NotNil(t, draft.VideoURL)
	assert.Equal(t, "https://vk.com/player/777", *draft.VideoURL)
}

func TestBuildDraft_VideoSynthesizedURLAndThumbnail(t *testing.T) {
	post := vk.Post{
		ID:   1,
		Text: "видео",
		Date: 1700000000,
		Attachments: []vk.Attachment{
			{Type: "video", Video: &vk.Video{
				ID:        777,
				OwnerID:   -123,
				AccessKey: "abc",
				Image: []vk.PhotoSize{
					{URL: "https://thumb/small", Width: 160, Height: 90},
					{URL: "https://thumb/big", Width: 1280, Height: 720},
				},
			}},
			{Type: "video", Video: &vk.Video{ID: 888, OwnerID: -123, Player: "https://vk.com/player/888"}},
		},
	}

	draft, ok := BuildDraft(post)
	require.True(t, ok)

	require.NotNil(t, draft.VideoURL)
	assert.Equal(t, "https://vk.com/video_ext.php?oid=-123&id=777&hash=abc&hd=2", *draft.VideoURL)

	// Video thumbnail backfills the featured image; second video ignored.
	require.NotNil(t, draft.FeaturedImage)
	assert.Equal(t, "https://thumb/big", *draft.FeaturedImage)
}

func TestBuildDraft_PhotoWinsFeaturedOverThumbnail(t *testing.T) {
	post := vk.Post{
		ID:   1,
		Text: "микс",
		Date: 1700000000,
		Attachments: []vk.Attachment{
			{Type: "video", Video: &vk.Video{
				ID: 1, OwnerID: -1, Player: "https://vk.com/player/1",
				Photo: []vk.PhotoSize{{URL: "https://thumb", Width: 800, Height: 450}},
			}},
			{Type: "photo", Photo: &vk.Photo{Sizes: []vk.PhotoSize{
				{URL: "https://img/photo", Width: 604, Height: 403},
			}}},
		},
	}

	draft, ok := BuildDraft(post)
	require.True(t, ok)

	// The video came first, so its thumbnail took the featured slot and
	// the photo lands in the gallery.
	require.NotNil(t, draft.FeaturedImage)
	assert.Equal(t, "https://thumb", *draft.FeaturedImage)
	assert.Equal(t, []string{"https://img/photo"}, draft.Gallery)
}
