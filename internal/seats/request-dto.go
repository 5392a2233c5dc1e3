package seats

type ReserveSeatsRequest struct {
	SeatIDs          []string `json:"seat_ids" binding:"required,min=1,dive,seatid"`
	SessionID        string   `json:"session_id" binding:"omitempty,sessionid"`
	HoldDurationSecs int      `json:"hold_duration_seconds" binding:"omitempty,min=30"`
}

type SeatSetRequest struct {
	SeatIDs   []string `json:"seat_ids" binding:"required,min=1,dive,seatid"`
	SessionID string   `json:"session_id" binding:"omitempty,sessionid"`
}
