// Package api contains API contract definitions for the Insight dashboard
// backend. Version v1 represents the current stable API version.
package api

// Session API Requests

// ColumnPayload is the wire form of one dataset column. Values carries the
// cells in row order; a JSON null marks a missing cell. Numeric columns take
// numbers, categorical columns take strings.
type ColumnPayload struct {
	Name   string        `json:"name" validate:"required,max=128"`
	Type   string        `json:"type" validate:"required,oneof=numeric categorical"`
	Values []interface{} `json:"values"`
}

// CreateSessionRequest represents a request to create a cleaning session
// from an inline dataset.
type CreateSessionRequest struct {
	Name    string          `json:"name" validate:"required,min=1,max=128"`
	Columns []ColumnPayload `json:"columns" validate:"required,min=1,dive"`
}

// Operation API Requests

// OperationParams carries strategy-specific parameters.
type OperationParams struct {
	// K is the neighbor count for knn strategies.
	K int `json:"k,omitempty" validate:"omitempty,min=1"`
	// Constant is the fill value for the numeric constant strategy.
	Constant *float64 `json:"constant,omitempty"`
	// FillValue is the fill value for the categorical constant strategy;
	// sending it as null and sending "" are different things.
	FillValue *string `json:"fill_value,omitempty"`
	// UnknownMarker overrides the configured sentinel for unknown_marker.
	UnknownMarker string `json:"unknown_marker,omitempty"`
	// Threshold selects drop candidates by missing fraction when
	// drop_columns is requested without an explicit column list.
	Threshold *float64 `json:"threshold,omitempty" validate:"omitempty,min=0,max=1"`
}

// OperationRequest represents a request to apply a cleaning operation to a
// session's current snapshot.
type OperationRequest struct {
	Type     string          `json:"type" validate:"required,oneof=impute_numeric impute_categorical drop_columns"`
	Strategy string          `json:"strategy,omitempty" validate:"omitempty,oneof=mean median mode constant unknown_marker knn"`
	Columns  []string        `json:"columns,omitempty" validate:"omitempty,dive,required"`
	Params   OperationParams `json:"params"`
}
