package echoapi

import (
	"github.com/labstack/echo/v4"

	"github.com/researchnest/backend/core"
)

const orderingParam = "ordering"

type Ordering struct {
	Orderings []core.DBOrdering
}

// Bind reads the `ordering` query param, eg: ?ordering=-created_at,full_name
func (ord *Ordering) Bind(ctx echo.Context) {
	ord.Orderings = core.ParseOrdering(ctx.QueryParam(orderingParam))
}
