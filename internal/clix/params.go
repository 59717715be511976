package clix

import (
	"strings"

	"github.com/spf13/pflag"
)

type PaginationParams struct {
	Limit  int
	Offset int
}

func ParsePagination(flags *pflag.FlagSet) (PaginationParams, error) {
	limit, _ := flags.GetInt("limit")
	offset, _ := flags.GetInt("offset")
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return PaginationParams{Limit: limit, Offset: offset}, nil
}

// ParseList splits a separator-delimited flag value, trimming blanks.
func ParseList(flags *pflag.FlagSet, name, sep string) ([]string, error) {
	raw, err := flags.GetString(name)
	if err != nil {
		return nil, err
	}
	var items []string
	if raw != "" {
		for _, t := range strings.Split(raw, sep) {
			trimmed := strings.TrimSpace(t)
			if trimmed != "" {
				items = append(items, trimmed)
			}
		}
	}
	return items, nil
}
