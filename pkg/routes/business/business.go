package business

import (
	"context"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/camellia/pkg/merging"
	"github.com/Ramsey-B/camellia/pkg/models"
)

// Store is the read side of the business repository.
type Store interface {
	Get(ctx context.Context, id string) (*models.Business, error)
	ListByCluster(ctx context.Context, clusterID string) ([]models.Business, error)
	FindBySourceKey(ctx context.Context, key models.SourceKey) (*models.Business, error)
}

type Handler struct {
	store Store
}

func NewHandler(store Store) *Handler {
	return &Handler{store: store}
}

// Register registers business routes
func (h *Handler) Register(g *echo.Group) {
	g.GET("/:id", h.GetBusiness)
	g.GET("/by-source/:source/:uid", h.GetBySource)
}

// ClusterView is a record together with the canonical record of its cluster and every member.
type ClusterView struct {
	Business models.Business   `json:"business"`
	Root     models.Business   `json:"root"`
	Members  []models.Business `json:"members"`
}

// GetBusiness gets a record and its cluster
func (h *Handler) GetBusiness(c echo.Context) error {
	ctx := c.Request().Context()

	record, err := h.store.Get(ctx, c.Param("id"))
	if err != nil {
		return err
	}
	return h.respond(c, *record)
}

// GetBySource gets the record that absorbed a source listing
func (h *Handler) GetBySource(c echo.Context) error {
	ctx := c.Request().Context()
	key := models.SourceKey{Source: c.Param("source"), UID: c.Param("uid")}

	record, err := h.store.FindBySourceKey(ctx, key)
	if err != nil {
		return err
	}
	if record == nil {
		return httperror.NewHTTPErrorf(http.StatusNotFound, "no business for source key '%s'", key.String())
	}
	return h.respond(c, *record)
}

func (h *Handler) respond(c echo.Context, record models.Business) error {
	ctx := c.Request().Context()

	root, err := merging.ResolveCluster(ctx, record, h.lookup)
	if err != nil {
		return err
	}

	members, err := h.store.ListByCluster(ctx, root.ID)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, ClusterView{
		Business: record,
		Root:     root,
		Members:  members,
	})
}

func (h *Handler) lookup(ctx context.Context, id string) (models.Business, error) {
	record, err := h.store.Get(ctx, id)
	if err != nil {
		return models.Business{}, err
	}
	return *record, nil
}
