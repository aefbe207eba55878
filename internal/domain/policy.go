package domain

import "context"

type PolicyInput struct {
	Subject string   `json:"subject"`
	Roles   []string `json:"roles"`
	Action  string   `json:"action"`
}

type PolicyDenial struct {
	Code    string `json:"code"`
	Message string `json:"message,omitempty"`
}

type PolicyDecision struct {
	Allow bool           `json:"allow"`
	Deny  []PolicyDenial `json:"deny,omitempty"`
}

type PolicyEngine interface {
	Evaluate(ctx context.Context, input PolicyInput) (PolicyDecision, error)
}
