package service

import (
	"io"

	"clipshare/internal/media"
	"clipshare/internal/models"
	"clipshare/internal/pagination"
)

// MsgMissingKeyword is returned by the search operations.
const MsgMissingKeyword = "Please specify your keyword!"

// MediaStore persists uploaded files.
type MediaStore interface {
	Save(kind media.Kind, contentType string, r io.Reader) (string, error)
	Exists(kind media.Kind, fileID string) bool
	Delete(kind media.Kind, fileID string) error
	URL(kind media.Kind, fileID string) string
	SaveTo(kind media.Kind, fileID string) string
	FileIDFromURL(kind media.Kind, url string) (string, bool)
}

// PageQuery is the page requested by a listing and the absolute URL it was
// requested at, used to build the next-page link.
type PageQuery struct {
	Page    string
	SelfURL string
}

func (q PageQuery) window() pagination.Window {
	return pagination.Parse(q.Page)
}

func pageResult(w pagination.Window, total int64, selfURL string) models.PageResult {
	totalPages := pagination.TotalPages(total)
	return models.PageResult{
		Page:    w.Page,
		NextURL: pagination.NextURL(selfURL, w.Page, totalPages),
		AllPage: totalPages,
	}
}
