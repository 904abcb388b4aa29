package schema

import "github.com/aretw0/pipegraph/pkg/domain"

// Schema maps parameter names to their value types.
type Schema map[string]Type

// FromParams builds the schema of a process declaration.
func FromParams(params []domain.ParamSpec) (Schema, error) {
	s := make(Schema, len(params))
	var errs []error
	for _, p := range params {
		t, err := ParseType(p.Type)
		if err != nil {
			errs = append(errs, &ValidationError{Key: p.Name, Reason: err.Error()})
			continue
		}
		s[p.Name] = t
	}
	if len(errs) > 0 {
		return nil, &AggregateError{Errors: errs}
	}
	return s, nil
}

// ValidateOverrides parses and checks override values against the schema,
// in declaration order. Every failure is reported: unknown names as
// *domain.DanglingReferenceError, bad values as *ValidationError.
func ValidateOverrides(s Schema, overrides []domain.Override) (map[string]any, error) {
	values := make(map[string]any, len(overrides))
	var errs []error
	for _, o := range overrides {
		t, ok := s[o.Name]
		if !ok {
			errs = append(errs, &domain.DanglingReferenceError{Kind: "plug", Name: o.Name})
			continue
		}
		v, err := ParseValue(o.Raw)
		if err != nil {
			errs = append(errs, &ValidationError{Key: o.Name, Reason: err.Error(), Value: o.Raw})
			continue
		}
		if v != nil {
			if err := t.Validate(v); err != nil {
				errs = append(errs, &ValidationError{Key: o.Name, Reason: err.Error(), Value: v})
				continue
			}
		}
		values[o.Name] = v
	}
	if len(errs) > 0 {
		return nil, &AggregateError{Errors: errs}
	}
	return values, nil
}
