package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/aws/aws-lambda-go/events"
)

// userSub reads the Cognito subject from an HTTP API JWT authorizer.
func userSub(req events.APIGatewayV2HTTPRequest) (string, error) {
	if req.RequestContext.Authorizer == nil || req.RequestContext.Authorizer.JWT == nil {
		return "", errors.New("missing authorizer claims")
	}
	claims := req.RequestContext.Authorizer.JWT.Claims
	if claims == nil {
		return "", errors.New("missing authorizer claims")
	}
	sub := strings.TrimSpace(claims["sub"])
	if sub == "" {
		return "", errors.New("missing sub")
	}
	return sub, nil
}

func jsonOK(v any) events.APIGatewayV2HTTPResponse {
	return jsonResp(http.StatusOK, v)
}

func jsonErr(status int, msg string, err error) events.APIGatewayV2HTTPResponse {
	resp := map[string]any{"error": msg}
	if err != nil {
		resp["detail"] = err.Error()
	}
	return jsonResp(status, resp)
}

func jsonResp(status int, v any) events.APIGatewayV2HTTPResponse {
	b, _ := json.Marshal(v)
	return events.APIGatewayV2HTTPResponse{
		StatusCode: status,
		Headers: map[string]string{
			"content-type":                "application/json",
			"access-control-allow-origin": "*",
		},
		Body: string(b),
	}
}
