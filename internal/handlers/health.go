package handlers

import (
	"context"

	"github.com/aws/aws-lambda-go/events"
)

const ServiceName = "finassist"

type HealthResponse struct {
	OK      bool              `json:"ok"`
	Service string            `json:"service"`
	Version string            `json:"version"`
	Model   string            `json:"model"`
	Tables  map[string]string `json:"tables"`
}

// Health answers the API Gateway probe with what this deployment is wired to.
// It makes no calls to AWS.
type Health struct {
	info HealthResponse
}

func NewHealth(version, model string, tables map[string]string) *Health {
	if version == "" {
		version = "dev"
	}
	return &Health{info: HealthResponse{OK: true, Service: ServiceName, Version: version, Model: model, Tables: tables}}
}

func (h *Health) Handle(_ context.Context, _ events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	return jsonOK(h.info), nil
}
