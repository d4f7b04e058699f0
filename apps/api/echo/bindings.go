package echoapi

import (
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/hoangvu/educenter/core"
)

var orderingParam = "ordering"

// envelope wraps a successful response payload. Every mutating endpoint
// responds with {"success": true, "message"?: ..., <key>: ...}.
func envelope(key string, val interface{}, message ...string) echo.Map {
	m := echo.Map{"success": true}
	if key != "" {
		m[key] = val
	}
	if len(message) > 0 {
		m["message"] = message[0]
	}
	return m
}

type Ordering struct {
	Orderings []core.DBOrdering
}

func (ord *Ordering) Bind(ctx echo.Context) {
	data := ctx.QueryParams()
	if len(data) == 0 {
		return
	}
	val, ok := data[orderingParam]
	if !ok || len(val) == 0 || val[0] == "" {
		return
	}

	for _, field := range strings.Split(val[0], ",") {
		field = strings.TrimSpace(field)
		descending := strings.HasPrefix(field, "-")
		if descending {
			field = field[1:] // drop "-"
		}
		ord.Orderings = append(ord.Orderings, core.DBOrdering{Field: field, Ascending: !descending})
	}
}
