// Package view turns posts and profiles into the values the templates
// display. Nothing here touches the network or the response.
package view

import (
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/ghaggin/feed/internal/model"
	"github.com/ghaggin/feed/internal/post"
)

const (
	EmptyText = "No hay tweets todavía. ¡Sé el primero en publicar!"

	defaultName   = "Usuario"
	defaultHandle = "anónimo"
)

type Feed struct {
	Empty bool
	Items []Item
}

type Item struct {
	ID         model.ID
	AuthorName string
	Handle     string
	Content    string
	When       string
	CreatedAt  time.Time
	Deletable  bool
}

// Render maps posts, already in display order, to feed items. Only the
// viewer's own posts are deletable.
func Render(posts []model.Post, viewerID string, now time.Time) Feed {
	if len(posts) == 0 {
		return Feed{Empty: true}
	}

	items := make([]Item, 0, len(posts))
	for _, p := range posts {
		name, handle := defaultName, defaultHandle
		if p.Author != nil {
			if p.Author.FullName != "" {
				name = p.Author.FullName
			}
			if p.Author.Username != "" {
				handle = p.Author.Username
			}
		}

		items = append(items, Item{
			ID:         p.ID,
			AuthorName: name,
			Handle:     "@" + handle,
			Content:    p.Content,
			When:       FormatRelativeTime(p.CreatedAt, now),
			CreatedAt:  p.CreatedAt,
			Deletable:  viewerID != "" && p.AuthorID == viewerID,
		})
	}

	return Feed{Items: items}
}

type ProfileHeader struct {
	Name   string
	Handle string
}

// Header describes the signed in user. A missing profile still yields a
// usable header.
func Header(p *model.Profile) ProfileHeader {
	h := ProfileHeader{Name: defaultName}
	if p == nil {
		return h
	}
	if p.FullName != "" {
		h.Name = p.FullName
	}
	if p.Username != "" {
		h.Handle = "@" + p.Username
	}
	return h
}

type Counter struct {
	Length    int    `json:"length"`
	Limit     int    `json:"limit"`
	OverLimit bool   `json:"over_limit"`
	Label     string `json:"label"`
}

func CharacterCounter(text string) Counter {
	n := utf8.RuneCountInString(text)
	return Counter{
		Length:    n,
		Limit:     post.MaxLength,
		OverLimit: n > post.MaxLength,
		Label:     fmt.Sprintf("%d/%d", n, post.MaxLength),
	}
}
