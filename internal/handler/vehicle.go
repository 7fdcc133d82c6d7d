package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"carmatch/internal/catalog"
)

// VehicleHandler serves catalog lookups
type VehicleHandler struct {
	catalog *catalog.Catalog
}

// NewVehicleHandler creates a new vehicle handler
func NewVehicleHandler(cat *catalog.Catalog) *VehicleHandler {
	return &VehicleHandler{catalog: cat}
}

// GetVehicle handles GET /api/v1/vehicles/:id
func (h *VehicleHandler) GetVehicle(c *gin.Context) {
	v, err := h.catalog.Get(c.Param("id"))
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Vehicle not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get vehicle: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, v)
}
