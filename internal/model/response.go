package model

type ErrorResponse struct {
	Error string `json:"error"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type HealthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
}

type RootResponse struct {
	Message string  `json:"message"`
	Version string  `json:"version"`
	Docs    *string `json:"docs"`
}
