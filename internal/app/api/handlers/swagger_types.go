package handlers

// RespOK documents the generic success envelope for Swagger.
type RespOK struct {
	Code    int    `json:"code" example:"0"`
	Message string `json:"message" example:"ok"`
	Data    any    `json:"data"`
}

// RespError documents the generic error envelope for Swagger.
type RespError struct {
	Code    int    `json:"code" example:"50000"`
	Message string `json:"message" example:"unexpected error"`
	Data    any    `json:"data"`
}
