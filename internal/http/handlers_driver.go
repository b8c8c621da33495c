// README: Driver position publish and nearby lookup handlers.
package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"corrida/internal/types"
)

func (s *Server) handleUpdateDriverPosition(c *gin.Context) {
	var req struct {
		Lat float64 `json:"lat"`
		Lng float64 `json:"lng"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	id := types.ID(c.Param("id"))
	if err := s.tracking.Publish(c.Request.Context(), id, types.Point{Lat: req.Lat, Lng: req.Lng}); err != nil {
		writeError(c, http.StatusServiceUnavailable, "position store unavailable")
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleNearbyDrivers(c *gin.Context) {
	lat, err1 := strconv.ParseFloat(c.Query("lat"), 64)
	lng, err2 := strconv.ParseFloat(c.Query("lng"), 64)
	if err1 != nil || err2 != nil {
		writeError(c, http.StatusBadRequest, "lat and lng are required")
		return
	}
	radiusKm := 3.0
	if v := c.Query("radius_km"); v != "" {
		r, err := strconv.ParseFloat(v, 64)
		if err != nil || r <= 0 {
			writeError(c, http.StatusBadRequest, "invalid radius_km")
			return
		}
		radiusKm = r
	}

	ids, err := s.tracking.Nearby(c.Request.Context(), types.Point{Lat: lat, Lng: lng}, radiusKm)
	if err != nil {
		writeError(c, http.StatusServiceUnavailable, "position store unavailable")
		return
	}
	c.JSON(http.StatusOK, gin.H{"driver_ids": ids})
}
