package category

import (
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/camellia/pkg/categories"
	"github.com/Ramsey-B/camellia/pkg/models"
)

type Handler struct {
	resolver *categories.Resolver
}

func NewHandler(resolver *categories.Resolver) *Handler {
	return &Handler{resolver: resolver}
}

// Register registers category routes
func (h *Handler) Register(g *echo.Group) {
	g.GET("", h.ListPrimaries)
	g.GET("/resolve", h.Resolve)
	g.GET("/:id", h.Get)
}

// ResolveResponse shows the raw resolver output next to the assignment a record would get.
type ResolveResponse struct {
	Label    string            `json:"label"`
	Resolved models.Resolution `json:"resolved"`
	Assigned models.Resolution `json:"assigned"`
}

// Resolve runs a label through the resolver
func (h *Handler) Resolve(c echo.Context) error {
	label := c.QueryParam("label")
	if label == "" {
		return httperror.NewHTTPError(http.StatusBadRequest, "query parameter 'label' is required")
	}

	resolved := h.resolver.Resolve(label)
	return c.JSON(http.StatusOK, ResolveResponse{
		Label:    label,
		Resolved: resolved,
		Assigned: h.resolver.RepairParent(resolved),
	})
}

// ListPrimaries lists the primary taxonomy nodes
func (h *Handler) ListPrimaries(c echo.Context) error {
	return c.JSON(http.StatusOK, h.resolver.Taxonomy().Primaries())
}

func (h *Handler) Get(c echo.Context) error {
	id := c.Param("id")
	node, ok := h.resolver.Taxonomy().ByID(id)
	if !ok {
		return httperror.NewHTTPErrorf(http.StatusNotFound, "category '%s' not found", id)
	}
	return c.JSON(http.StatusOK, node)
}
