package models

// Requests for the market-data HTTP endpoints. Defined in domain for consistency and reuse.

type CandlesRequest struct {
	InstrumentID int64  `query:"instrument_id" json:"instrument_id" validate:"required,gt=0"`
	TF           string `query:"tf" json:"tf" default:"1m" validate:"oneof=1m 5m 15m 1h 4h 1d"`
	Limit        int    `query:"limit" json:"limit" default:"1000" validate:"gte=1,lte=5000"`
}

type SelectRequest struct {
	InstrumentID int64  `query:"instrument_id" json:"instrument_id" validate:"required,gt=0"`
	TF           string `query:"tf" json:"tf" default:"1m" validate:"oneof=1m 5m 15m 1h 4h 1d"`
}

type MarkersRequest struct {
	InstrumentID int64  `query:"instrument_id" json:"instrument_id" validate:"required,gt=0"`
	TF           string `query:"tf" json:"tf" default:"1m" validate:"oneof=1m 5m 15m 1h 4h 1d"`
	SessionID    string `query:"session_id" json:"session_id" validate:"required"`
}
