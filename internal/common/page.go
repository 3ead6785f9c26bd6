package common

// PageParams resolves optional pagination parameters. A nil or non-positive
// limit falls back to 10, a nil or negative offset to 0.
func PageParams(limit, offset *int) (int, int) {
	l, o := 10, 0

	if limit != nil && *limit > 0 {
		l = *limit
	}

	if offset != nil && *offset > 0 {
		o = *offset
	}

	return l, o
}
