package handler

import (
	"strconv"
	"strings"
)

// parseID reads a positive numeric path or query value.
func parseID(raw, name string) (uint64, error) {
	id, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 64)
	if err != nil || id == 0 {
		return 0, errBadRequest("Invalid " + name)
	}
	return id, nil
}

// queryInt returns def when raw is empty or not an integer.
func queryInt(raw string, def int) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return def
	}
	return n
}
