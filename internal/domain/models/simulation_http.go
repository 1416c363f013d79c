package models

// Requests for simulation endpoints and the async request topic.

type SimulateRequest struct {
	Ticker        string   `json:"ticker" validate:"required,max=10"`
	HorizonMonths int      `json:"horizonMonths" default:"6" validate:"oneof=6 12"`
	Models        []string `json:"models" validate:"omitempty,dive,required"`
}

type ScenarioStreamRequest struct {
	Ticker        string `query:"ticker" json:"ticker" validate:"required,max=10"`
	HorizonMonths int    `query:"horizonMonths" json:"horizonMonths" default:"6" validate:"oneof=6 12"`
	Models        string `query:"models" json:"models"`
}

// SimulationRequestMessage is the payload on the simulation requests topic.
type SimulationRequestMessage struct {
	Ticker        string   `json:"ticker"`
	HorizonMonths int      `json:"horizonMonths"`
	Models        []string `json:"models,omitempty"`
}
