// README: Ride booking and payment settlement handlers.
package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"corrida/internal/modules/ride"
	"corrida/internal/types"
)

type bookRideReq struct {
	PassengerID string  `json:"passenger_id"`
	PickupLat   float64 `json:"pickup_lat"`
	PickupLng   float64 `json:"pickup_lng"`
	DropoffLat  float64 `json:"dropoff_lat"`
	DropoffLng  float64 `json:"dropoff_lng"`
	ClassID     string  `json:"class_id"`
	Passengers  int     `json:"passengers"`
}

type quoteResp struct {
	ClassID  string `json:"class_id"`
	Exact    string `json:"exact"`
	RangeMin string `json:"range_min"`
	RangeMax string `json:"range_max"`
	Currency string `json:"currency"`
}

type routeResp struct {
	DistanceKm  float64 `json:"distance_km"`
	DurationMin int     `json:"duration_min"`
}

type sessionResp struct {
	Method      string     `json:"method,omitempty"`
	State       string     `json:"state"`
	AmountDue   string     `json:"amount_due"`
	ChangeDue   string     `json:"change_due,omitempty"`
	Disposition string     `json:"change_disposition,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

type rideResp struct {
	ID       types.ID     `json:"ride_id"`
	Status   string       `json:"status"`
	DriverID *types.ID    `json:"driver_id,omitempty"`
	Route    *routeResp   `json:"route,omitempty"`
	Quote    *quoteResp   `json:"quote,omitempty"`
	Session  *sessionResp `json:"payment,omitempty"`
}

func toRideResp(r *ride.Ride) rideResp {
	out := rideResp{
		ID:       r.ID,
		Status:   string(r.Status),
		DriverID: r.DriverID,
	}
	if r.Route != nil {
		out.Route = &routeResp{DistanceKm: r.Route.DistanceKm, DurationMin: r.Route.DurationMin}
	}
	if r.Quote != nil {
		out.Quote = &quoteResp{
			ClassID:  r.Quote.ClassID,
			Exact:    r.Quote.Exact.String(),
			RangeMin: r.Quote.RangeMin.String(),
			RangeMax: r.Quote.RangeMax.String(),
			Currency: r.Quote.Exact.Currency,
		}
	}
	if r.Session != nil {
		out.Session = toSessionResp(r.Session)
	}
	return out
}

func toSessionResp(s *ride.Session) *sessionResp {
	out := &sessionResp{
		Method:      string(s.Method),
		State:       string(s.State),
		AmountDue:   s.AmountDue.String(),
		Disposition: string(s.Disposition),
		CompletedAt: s.CompletedAt,
	}
	if !s.ChangeDue.IsZero() {
		out.ChangeDue = s.ChangeDue.String()
	}
	return out
}

func (s *Server) handleBookRide(c *gin.Context) {
	var req bookRideReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	r, err := s.ride.Book(c.Request.Context(), ride.BookCommand{
		PassengerID: types.ID(req.PassengerID),
		Pickup:      types.Point{Lat: req.PickupLat, Lng: req.PickupLng},
		Dropoff:     types.Point{Lat: req.DropoffLat, Lng: req.DropoffLng},
		ClassID:     req.ClassID,
		Passengers:  req.Passengers,
	})
	if err != nil {
		writeRideError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toRideResp(r))
}

func (s *Server) handleGetRide(c *gin.Context) {
	r, err := s.ride.Get(types.ID(c.Param("id")))
	if err != nil {
		writeRideError(c, err)
		return
	}
	c.JSON(http.StatusOK, toRideResp(r))
}

func (s *Server) handleCancelRide(c *gin.Context) {
	var req struct {
		Reason string `json:"reason"`
	}
	_ = c.ShouldBindJSON(&req)
	r, err := s.ride.Cancel(c.Request.Context(), types.ID(c.Param("id")), req.Reason)
	if err != nil {
		writeRideError(c, err)
		return
	}
	c.JSON(http.StatusOK, toRideResp(r))
}

func (s *Server) handleAssignDriver(c *gin.Context) {
	var req struct {
		DriverID string `json:"driver_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	r, err := s.ride.AssignDriver(c.Request.Context(), types.ID(c.Param("id")), types.ID(req.DriverID))
	if err != nil {
		writeRideError(c, err)
		return
	}
	c.JSON(http.StatusOK, toRideResp(r))
}

func (s *Server) handleSetDropoff(c *gin.Context) {
	var req struct {
		Lat float64 `json:"lat"`
		Lng float64 `json:"lng"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	r, err := s.ride.SetDropoff(c.Request.Context(), types.ID(c.Param("id")), types.Point{Lat: req.Lat, Lng: req.Lng})
	if err != nil {
		writeRideError(c, err)
		return
	}
	// The quote catches up when the new route resolves.
	c.JSON(http.StatusAccepted, toRideResp(r))
}

func (s *Server) handleSetVehicleClass(c *gin.Context) {
	var req struct {
		ClassID string `json:"class_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	r, err := s.ride.SetVehicleClass(c.Request.Context(), types.ID(c.Param("id")), req.ClassID)
	if err != nil {
		writeRideError(c, err)
		return
	}
	c.JSON(http.StatusOK, toRideResp(r))
}

func (s *Server) handleSelectPaymentMethod(c *gin.Context) {
	var req struct {
		Method string `json:"method"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	sess, err := s.ride.SelectPaymentMethod(c.Request.Context(), types.ID(c.Param("id")), ride.Method(req.Method))
	if err != nil {
		writeSessionOrError(c, sess, err)
		return
	}
	c.JSON(http.StatusOK, toSessionResp(sess))
}

func (s *Server) handleSubmitCard(c *gin.Context) {
	sess, err := s.ride.SubmitCard(c.Request.Context(), types.ID(c.Param("id")))
	if err != nil {
		writeSessionOrError(c, sess, err)
		return
	}
	c.JSON(http.StatusOK, toSessionResp(sess))
}

func (s *Server) handleSubmitCashAmount(c *gin.Context) {
	var req struct {
		Amount   int64  `json:"amount"`
		Currency string `json:"currency"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	tendered := types.Money{Amount: req.Amount, Currency: req.Currency}
	sess, err := s.ride.SubmitCashAmount(c.Request.Context(), types.ID(c.Param("id")), tendered)
	if err != nil {
		writeSessionOrError(c, sess, err)
		return
	}
	c.JSON(http.StatusOK, toSessionResp(sess))
}

func (s *Server) handleConfirmChangeDisposition(c *gin.Context) {
	var req struct {
		Disposition string `json:"disposition"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	sess, err := s.ride.ConfirmChangeDisposition(c.Request.Context(), types.ID(c.Param("id")), ride.Disposition(req.Disposition))
	if err != nil {
		writeSessionOrError(c, sess, err)
		return
	}
	c.JSON(http.StatusOK, toSessionResp(sess))
}

// writeSessionOrError reports the failure but still includes the session's
// resting state, so the caller knows where the settlement bounced to.
func writeSessionOrError(c *gin.Context, sess *ride.Session, err error) {
	status, msg := statusFor(err)
	if sess == nil {
		writeError(c, status, msg)
		return
	}
	c.JSON(status, gin.H{"error": msg, "payment": toSessionResp(sess)})
}

func (s *Server) handleListClasses(c *gin.Context) {
	type classResp struct {
		ID    string `json:"id"`
		Name  string `json:"name"`
		Base  string `json:"base_fare"`
		PerKm string `json:"rate_per_km"`
	}
	classes := s.fares.All()
	out := make([]classResp, 0, len(classes))
	for _, cl := range classes {
		out = append(out, classResp{
			ID:    cl.ID,
			Name:  cl.Name,
			Base:  cl.Base.String(),
			PerKm: cl.PerKm.String(),
		})
	}
	c.JSON(http.StatusOK, gin.H{"classes": out})
}
