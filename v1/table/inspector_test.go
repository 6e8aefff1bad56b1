package table

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveRoles(t *testing.T) {
	tests := []struct {
		name    string
		columns []Column
		want    ColumnRoles
	}{
		{
			name: "postgres types",
			columns: []Column{
				{Name: "id", DatabaseType: "INT8"},
				{Name: "created_at", DatabaseType: "TIMESTAMPTZ"},
				{Name: "updated_at", DatabaseType: "TIMESTAMP"},
				{Name: "deleted_at", DatabaseType: "TIMESTAMPTZ"},
			},
			want: ColumnRoles{CreateAt: "created_at", UpdateAt: "updated_at", DeleteAt: "deleted_at"},
		},
		{
			name: "mysql types and mixed case",
			columns: []Column{
				{Name: "CreateTime", DatabaseType: "DATETIME"},
				{Name: "DeleteDate", DatabaseType: "DATE"},
			},
			want: ColumnRoles{CreateAt: "CreateTime", DeleteAt: "DeleteDate"},
		},
		{
			name: "non temporal columns ignored",
			columns: []Column{
				{Name: "created_by", DatabaseType: "TEXT"},
				{Name: "deleted", DatabaseType: "BOOL"},
			},
			want: ColumnRoles{},
		},
		{
			name: "first match in ordinal order wins",
			columns: []Column{
				{Name: "created_at", DatabaseType: "TIMESTAMP"},
				{Name: "recreated_at", DatabaseType: "TIMESTAMP"},
			},
			want: ColumnRoles{CreateAt: "created_at"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, resolveRoles(tt.columns))
		})
	}
}

func TestStamp(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	in := Row{"name": "a"}
	out := stamp(in, "created_at", now)
	assert.Equal(t, Row{"name": "a", "created_at": now}, out)
	assert.Equal(t, Row{"name": "a"}, in)

	own := now.Add(-time.Hour)
	out = stamp(Row{"Created_At": own}, "created_at", now)
	assert.Equal(t, Row{"Created_At": own}, out)

	out = stamp(Row{"name": "a"}, "", now)
	assert.Equal(t, Row{"name": "a"}, out)
}

func TestToInt64(t *testing.T) {
	for _, v := range []interface{}{int64(3), int32(3), 3, uint64(3), float64(3), []byte("3"), "3"} {
		n, err := toInt64(v)
		require.NoError(t, err)
		assert.Equal(t, int64(3), n)
	}

	n, err := toInt64(nil)
	require.NoError(t, err)
	assert.Zero(t, n)

	_, err = toInt64(struct{}{})
	assert.Error(t, err)
}

func TestPageDefaults(t *testing.T) {
	assert.Equal(t, DefaultPageSize, Page{}.limit())
	assert.Equal(t, 0, Page{}.offset())
	assert.Equal(t, 30, Page{Index: 3, Size: 10}.offset())
	assert.Equal(t, 0, Page{Index: -1, Size: 10}.offset())
}
