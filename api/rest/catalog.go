package rest

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kasuganosora/materialplanner/resource"
)

// CatalogHandler exposes the loaded servant catalog.
type CatalogHandler struct {
	res *resource.ResourceLoader
}

// NewCatalogHandler creates a CatalogHandler.
func NewCatalogHandler(res *resource.ResourceLoader) *CatalogHandler {
	return &CatalogHandler{res: res}
}

type servantSummary struct {
	ID           resource.ServantID `json:"id"`
	Name         string             `json:"name"`
	Skills       int                `json:"skills"`
	AppendSkills int                `json:"append_skills"`
	Ascensions   int                `json:"ascensions"`
	Costumes     int                `json:"costumes"`
}

// Servants lists catalog servants with the size of each enhancement table.
// GET /api/catalog/servants
func (h *CatalogHandler) Servants(c *gin.Context) {
	servants := h.res.Servants().Sorted()
	out := make([]servantSummary, 0, len(servants))
	for _, s := range servants {
		out = append(out, servantSummary{
			ID:           s.ID,
			Name:         s.Name,
			Skills:       len(s.Skills),
			AppendSkills: len(s.AppendSkills),
			Ascensions:   len(s.Ascensions),
			Costumes:     len(s.Costumes),
		})
	}
	c.JSON(http.StatusOK, gin.H{
		"version":  h.res.Version(),
		"servants": out,
	})
}
