package handlers

import (
	"math"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// PageMeta - блок meta постраничных ответов (формат мобильного клиента:
// page / per_page).
type PageMeta struct {
	CurrentPage int   `json:"current_page"`
	PerPage     int   `json:"per_page"`
	Total       int64 `json:"total"`
	LastPage    int   `json:"last_page"`
}

const (
	defaultPerPage = 15
	maxPerPage     = 100
)

func pageParams(c *gin.Context) (page, perPage int) {
	page, _ = strconv.Atoi(c.Query("page"))
	if page <= 0 {
		page = 1
	}

	perPage, _ = strconv.Atoi(c.Query("per_page"))
	switch {
	case perPage > maxPerPage:
		perPage = maxPerPage
	case perPage <= 0:
		perPage = defaultPerPage
	}
	return page, perPage
}

// Paginate - GORM scope, применяющий offset/limit из query-параметров
// page и per_page.
func Paginate(c *gin.Context) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		page, perPage := pageParams(c)
		return db.Offset((page - 1) * perPage).Limit(perPage)
	}
}

// NewPageMeta собирает meta по общему числу строк и параметрам запроса.
func NewPageMeta(c *gin.Context, total int64) PageMeta {
	page, perPage := pageParams(c)

	lastPage := 0
	if total > 0 {
		lastPage = int(math.Ceil(float64(total) / float64(perPage)))
	}

	return PageMeta{
		CurrentPage: page,
		PerPage:     perPage,
		Total:       total,
		LastPage:    lastPage,
	}
}
