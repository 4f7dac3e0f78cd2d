package server

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

// SubgraphParams are the query parameters of a subgraph request.
type SubgraphParams struct {
	StartNodeID   string `json:"startNodeId" validate:"required,max=255"`
	ForwardDepth  int    `json:"forwardDepth" validate:"gte=0"`
	BackwardDepth int    `json:"backwardDepth" validate:"gte=0"`
	EdgeLimit     int    `json:"edgeLimit" validate:"gte=1"`
}

const msgInvalidTypes = "Invalid parameter types"

// ParseSubgraphQuery reads SubgraphParams from URL query values. Every
// numeric parameter must be present and an integer.
func ParseSubgraphQuery(get func(string) string) (SubgraphParams, error) {
	p := SubgraphParams{StartNodeID: get("startNodeId")}
	for _, f := range []struct {
		name string
		dst  *int
	}{
		{"forwardDepth", &p.ForwardDepth},
		{"backwardDepth", &p.BackwardDepth},
		{"edgeLimit", &p.EdgeLimit},
	} {
		n, err := strconv.Atoi(strings.TrimSpace(get(f.name)))
		if err != nil {
			return SubgraphParams{}, inputError(msgInvalidTypes)
		}
		*f.dst = n
	}
	return p, nil
}

// paramValidator checks SubgraphParams against static tags and the
// configured depth and edge-limit maxima.
type paramValidator struct {
	v *validator.Validate
}

func newParamValidator(limits Limits) *paramValidator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	v.RegisterStructValidation(func(sl validator.StructLevel) {
		p := sl.Current().Interface().(SubgraphParams)
		maxDepth := strconv.Itoa(limits.MaxDepth)
		if p.ForwardDepth > limits.MaxDepth {
			sl.ReportError(p.ForwardDepth, "forwardDepth", "ForwardDepth", "lte", maxDepth)
		}
		if p.BackwardDepth > limits.MaxDepth {
			sl.ReportError(p.BackwardDepth, "backwardDepth", "BackwardDepth", "lte", maxDepth)
		}
		if p.EdgeLimit > limits.MaxEdgeLimit {
			sl.ReportError(p.EdgeLimit, "edgeLimit", "EdgeLimit", "lte", strconv.Itoa(limits.MaxEdgeLimit))
		}
	}, SubgraphParams{})
	return &paramValidator{v: v}
}

// validate returns an inputError describing the first violation, or nil.
func (pv *paramValidator) validate(p SubgraphParams) error {
	err := pv.v.Struct(p)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return inputError(msgInvalidTypes)
	}
	return inputError(describe(verrs[0]))
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "gte":
		if fe.Field() == "edgeLimit" {
			return "Edge limit must be positive"
		}
		return "Depth cannot be negative"
	case "lte", "max":
		return fmt.Sprintf("%s exceeds maximum of %s", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%s is invalid", fe.Field())
	}
}
