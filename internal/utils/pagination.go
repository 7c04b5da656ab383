// Package utils provides small, generic helpers used by the fake backend's
// handlers. They are independent of HTTP and of the backend's state.
package utils

import (
	"strconv"

	"github.com/tbourn/pawconnect/internal/domain"
)

// AtoiDefault converts a string to an int using strconv.Atoi.
// If the string is empty or cannot be parsed as an integer,
// it returns the provided default value instead.
//
// Example:
//
//	n := utils.AtoiDefault("42", 0) // returns 42
//	n = utils.AtoiDefault("", 10)   // returns 10
//	n = utils.AtoiDefault("x", 5)   // returns 5
func AtoiDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	return def
}

// PageParams parses the zero-based pageNo and the pageSize query values.
// A negative page becomes 0; a size outside 1..maxSize becomes defSize or
// maxSize.
func PageParams(pageNo, pageSize string, defSize, maxSize int) (no, size int) {
	no = AtoiDefault(pageNo, 0)
	if no < 0 {
		no = 0
	}
	size = AtoiDefault(pageSize, defSize)
	switch {
	case size < 1:
		size = defSize
	case size > maxSize:
		size = maxSize
	}
	return no, size
}

// Paginate cuts page no (zero-based) of the given size out of items. A page
// past the end has empty content but correct totals.
func Paginate[T any](items []T, no, size int) domain.Page[T] {
	if size < 1 {
		size = 1
	}
	total := len(items)
	pages := (total + size - 1) / size
	start := no * size
	if start > total {
		start = total
	}
	end := start + size
	if end > total {
		end = total
	}
	content := make([]T, end-start)
	copy(content, items[start:end])
	return domain.Page[T]{
		Content:       content,
		PageNo:        no,
		PageSize:      size,
		TotalElements: int64(total),
		TotalPages:    pages,
		Last:          no >= pages-1,
	}
}
