// Package transform turns raw VK wall posts into normalized article
// drafts: markup cleanup, title and excerpt derivation, hashtag
// extraction and the best-resolution media policy.
package transform

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"vk_syncer/internal/domain"
	"vk_syncer/internal/source/vk"
)

const (
	// FallbackTitle is used when a post has no usable first line.
	FallbackTitle = "Пост ВКонтакте"

	maxTitleLen   = 150
	maxExcerptLen = 300
)

var (
	mentionRe = regexp.MustCompile(`\[(?:club|id)\d+\|([^\]]+)\]`)
	hashtagRe = regexp.MustCompile(`#([\p{L}\p{N}_]+)`)
)

// CleanText rewrites inline community/user mention tokens to their
// visible labels and trims surrounding whitespace.
func CleanText(text string) string {
	return strings.TrimSpace(mentionRe.ReplaceAllString(text, "$1"))
}

// ExtractHashtags returns the hashtag words of text, without the '#'.
func ExtractHashtags(text string) []string {
	matches := hashtagRe.FindAllStringSubmatch(text, -1)
	tags := make([]string, 0, len(matches))
	for _, m := range matches {
		tags = append(tags, m[1])
	}
	return tags
}

// MakeTitle derives an article title from post text: hashtags stripped,
// first line, truncated at maxTitleLen runes on the preceding word
// boundary with an ellipsis.
func MakeTitle(text string) string {
	clean := strings.TrimSpace(hashtagRe.ReplaceAllString(CleanText(text), ""))
	firstLine := strings.TrimSpace(strings.SplitN(clean, "\n", 2)[0])

	runes := []rune(firstLine)
	if len(runes) > maxTitleLen {
		cut := string(runes[:maxTitleLen])
		if i := strings.LastIndex(cut, " "); i > 0 {
			cut = cut[:i]
		}
		firstLine = cut + "..."
	}

	if firstLine == "" {
		return FallbackTitle
	}
	return firstLine
}

// BuildDraft normalizes one raw post. ok is false when the post cannot
// become an article (no text); advertisement filtering is the caller's
// concern so every entry point applies it the same way.
func BuildDraft(post vk.Post) (*domain.Draft, bool) {
	if post.Text == "" {
		return nil, false
	}

	content := CleanText(post.Text)

	excerpt := content
	if runes := []rune(content); len(runes) > maxExcerptLen {
		excerpt = string(runes[:maxExcerptLen])
	}

	draft := &domain.Draft{
		Title:    MakeTitle(post.Text),
		Excerpt:  excerpt,
		Content:  strings.ReplaceAll(content, "\n", "<br/>"),
		PostDate: domain.Naive(time.Unix(post.Date, 0).In(domain.MoscowTZ)),
	}

	extractMedia(post.Attachments, draft)

	return draft, true
}

// extractMedia applies the media policy in attachment order: every
// photo contributes its largest size variant, the first becoming the
// featured image and the rest the gallery; only the first video is
// used, with its thumbnail promoted to featured image when no photo
// claimed that slot.
func extractMedia(attachments []vk.Attachment, draft *domain.Draft) {
	for _, att := range attachments {
		switch {
		case att.Type == "photo" && att.Photo != nil:
			best := bestSize(att.Photo.Sizes)
			if best == "" {
				continue
			}
			if draft.FeaturedImage == nil {
				draft.FeaturedImage = &best
			} else {
				draft.Gallery = append(draft.Gallery, best)
			}

		case att.Type == "video" && att.Video != nil && draft.VideoURL == nil:
			videoURL := playerURL(*att.Video)
			if videoURL != "" {
				draft.VideoURL = &videoURL
			}
			if draft.FeaturedImage == nil {
				if thumb := bestSize(att.Video.Thumbnails()); thumb != "" {
					draft.FeaturedImage = &thumb
				}
			}
		}
	}
}

// bestSize picks the variant maximizing width*height.
func bestSize(sizes []vk.PhotoSize) string {
	var best vk.PhotoSize
	bestArea := -1
	for _, s := range sizes {
		if area := s.Width * s.Height; area > bestArea {
			best = s
			bestArea = area
		}
	}
	return best.URL
}

// playerURL prefers the directly provided player link and otherwise
// synthesizes an embeddable URL from owner and video ids.
func playerURL(v vk.Video) string {
	if v.Player != "" {
		return v.Player
	}
	if v.OwnerID == 0 || v.ID == 0 {
		return ""
	}
	u := fmt.Sprintf("https://vk.com/video_ext.php?oid=%d&id=%d", v.OwnerID, v.ID)
	if v.AccessKey != "" {
		u += "&hash=" + v.AccessKey
	}
	return u + "&hd=2"
}
