package services

import (
	"strconv"
	"strings"

	"gorm.io/gorm"
)

// Page is one page of an ordered listing.
type Page[T any] struct {
	Items       []T   `json:"items"`
	Number      int   `json:"page"`
	PageSize    int   `json:"page_size"`
	Total       int64 `json:"total"`
	NumPages    int   `json:"total_pages"`
	HasNext     bool  `json:"has_next"`
	HasPrevious bool  `json:"has_previous"`
}

// ParsePage converts the raw page query parameter. Anything that is not an integer means the
// first page; integers are returned as-is and clamped later against the page count.
func ParsePage(raw string) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 1
	}
	return n
}

// clampPage resolves the requested page against the total. An empty listing still has one
// (empty) page and any index outside [1, numPages] lands on the last page.
func clampPage(requested int, total int64, size int) (number, numPages int) {
	if size <= 0 {
		size = 1
	}
	numPages = int((total + int64(size) - 1) / int64(size))
	if numPages < 1 {
		numPages = 1
	}
	if requested < 1 || requested > numPages {
		return numPages, numPages
	}
	return requested, numPages
}

// paginate counts the rows matched by base and loads the requested page. base must return a
// fresh query each call; load adds ordering and preloads to the page query only.
func paginate[T any](base func() *gorm.DB, load func(*gorm.DB) *gorm.DB, page, size int) (Page[T], error) {
	var total int64
	if err := base().Count(&total).Error; err != nil {
		return Page[T]{}, err
	}
	number, numPages := clampPage(page, total, size)

	items := make([]T, 0, size)
	if total > 0 {
		if err := load(base()).Offset((number - 1) * size).Limit(size).Find(&items).Error; err != nil {
			return Page[T]{}, err
		}
	}
	return Page[T]{
		Items:       items,
		Number:      number,
		PageSize:    size,
		Total:       total,
		NumPages:    numPages,
		HasNext:     number < numPages,
		HasPrevious: number > 1,
	}, nil
}
