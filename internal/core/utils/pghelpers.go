package utils

import (
	"github.com/jackc/pgx/v5/pgtype"
)

// ToString converts a string to a pgtype.Text.
// An empty string is stored as NULL.
func ToString(s string) pgtype.Text {
	return pgtype.Text{
		String: s,
		Valid:  s != "",
	}
}

// FromString converts a pgtype.Text to a string.
// A NULL value is converted to an empty string ("").
func FromString(t pgtype.Text) string {
	if !t.Valid {
		return ""
	}
	return t.String
}
