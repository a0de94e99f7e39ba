package option

import (
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/parcella/pkg/db/pagination"
	"gorm.io/gorm"
)

type QueryOption interface {
	Apply(*gorm.DB) *gorm.DB
}

type paginationOption struct {
	page       pagination.Pagination
	sortColumn string
}

// ApplyPagination applies keyset pagination ordered by (sortColumn desc, id desc).
// It fetches one extra row so callers can tell whether another page exists.
func ApplyPagination(page pagination.Pagination, sortColumn string) QueryOption {
	return paginationOption{page: page, sortColumn: sortColumn}
}

func (o paginationOption) Apply(stmt *gorm.DB) *gorm.DB {
	if o.page.PageToken != "" {
		cursor, err := pagination.DecodeCursor(o.page.PageToken)
		if err != nil {
			_ = stmt.AddError(err)
			return stmt
		}
		id, err := snowflake.ParseString(cursor.ID)
		if err != nil {
			_ = stmt.AddError(pagination.ErrInvalidPageToken)
			return stmt
		}

		var sortValue any = cursor.SortKey
		if ts, err := time.Parse(time.RFC3339Nano, cursor.SortKey); err == nil {
			sortValue = ts.UTC()
		}
		stmt = stmt.Where(
			fmt.Sprintf("((%s < ?) OR (%s = ? AND id < ?))", o.sortColumn, o.sortColumn),
			sortValue, sortValue, id,
		)
	}

	return stmt.
		Order(fmt.Sprintf("%s desc, id desc", o.sortColumn)).
		Limit(o.page.Limit() + 1)
}

// TimeCursor builds the cursor for rows sorted by a timestamp column.
func TimeCursor(id snowflake.ID, sortKey time.Time) pagination.Cursor {
	return pagination.Cursor{ID: id.String(), SortKey: sortKey.UTC().Format(time.RFC3339Nano)}
}
